package main

import (
	"flag"
	"fmt"

	"github.com/hfi/betabet/internal/config"
	"github.com/hfi/betabet/internal/mapfile"
	"github.com/hfi/betabet/pkg/cipher"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	mappingPath := fs.String("mapping", "", "YAML or TOML mapping file (defaults to cipher.mapping_file, then the built-in table)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	source := *mappingPath
	if source == "" && fs.NArg() > 0 {
		source = fs.Arg(0)
	}
	if source == "" {
		cfg, err := config.Load()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "validate: %v\n", err)
			return 1
		}
		source = cfg.Cipher.MappingFile
	}

	m, err := mapfile.Load(source)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "validate: %v\n", err)
		return 1
	}

	result := cipher.ValidateMapping(m)
	if !result.Valid {
		_, _ = fmt.Fprintf(stderr, "%s: %s\n", mappingLabel(source), result.Error)
		return 1
	}

	_, _ = fmt.Fprintf(stdout, "%s: valid (%d entries)\n", mappingLabel(source), m.Len())
	return 0
}
