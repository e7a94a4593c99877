package cipher

// defaultPairs is the German table: Latin capitals, digits, printable ASCII
// punctuation, the euro, degree and section signs, sharp s and the capital
// umlauts. Lowercase letters are handled by case folding.
var defaultPairs = []Pair{
	{'A', 'A'}, {'B', 'B'}, {'C', 'C'}, {'D', 'D'}, {'E', 'E'}, {'F', 'F'},
	{'G', 'L'}, {'H', 'M'}, {'I', 'N'}, {'J', 'R'}, {'K', 'S'}, {'L', 'V'},
	{'M', 'G'}, {'N', 'H'}, {'O', 'I'}, {'P', 'X'}, {'Q', 'J'}, {'R', 'K'},
	{'S', 'Q'}, {'T', 'O'}, {'U', 'P'}, {'V', 'T'}, {'W', 'Z'}, {'X', 'U'},
	{'Y', 'Y'}, {'Z', 'W'},

	{'0', '8'}, {'1', '3'}, {'2', '1'}, {'3', '5'}, {'4', '9'},
	{'5', '0'}, {'6', '6'}, {'7', '7'}, {'8', '4'}, {'9', '2'},

	{'!', '!'}, {'"', '"'}, {'#', '\''}, {'$', '@'}, {'%', '\\'},
	{'&', '-'}, {'\'', '$'}, {'(', ':'}, {')', '['}, {'*', ']'},
	{'+', '€'}, {',', '?'}, {'-', '{'}, {'.', '}'}, {'/', '='},
	{':', '°'}, {';', '>'}, {'<', '^'}, {'=', '('}, {'>', ')'},
	{'?', '<'}, {'@', ','}, {'[', '§'}, {'\\', '+'}, {']', '%'},
	{'^', '.'}, {'_', '#'}, {'{', '/'}, {'|', ';'}, {'}', '*'},
	{'~', '|'},

	{'€', 'ß'}, {'°', '~'}, {'§', '&'}, {'ß', '_'},
	{'Ä', 'Ü'}, {'Ö', 'Ä'}, {'Ü', 'Ö'},
}

var defaultMapping = NewMapping(defaultPairs...)

// DefaultMapping returns the built-in mapping used when no mapping is
// supplied. The same value is returned on every call; it has no mutators.
func DefaultMapping() *Mapping {
	return defaultMapping
}
