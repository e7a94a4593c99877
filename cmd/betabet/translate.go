package main

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/hfi/betabet/internal/audit"
	"github.com/hfi/betabet/internal/config"
	"github.com/hfi/betabet/internal/logging"
	"github.com/hfi/betabet/internal/mapfile"
	"github.com/hfi/betabet/pkg/cipher"
)

type operation string

const (
	opEncrypt operation = "encrypt"
	opDecrypt operation = "decrypt"
)

func runTranslate(op operation, args []string) int {
	fs := flag.NewFlagSet(string(op), flag.ContinueOnError)
	fs.SetOutput(stderr)
	mappingPath := fs.String("mapping", "", "YAML or TOML mapping file (defaults to cipher.mapping_file, then the built-in table)")
	nfc := fs.Bool("nfc", false, "normalize input to Unicode NFC before translating")
	copyResult := fs.Bool("copy", false, "also copy the result to the clipboard")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", op, err)
		return 1
	}
	logger := cliLogger()

	source := *mappingPath
	if source == "" {
		source = cfg.Cipher.MappingFile
	}
	m, err := mapfile.Load(source)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: %v\n", op, err)
		return 1
	}
	if result := cipher.ValidateMapping(m); !result.Valid {
		logger.Warn().Str("mapping", mappingLabel(source)).Str("reason", result.Error).Msg("mapping is not reversible")
	}

	text, err := inputText(fs.Args())
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%s: read input: %v\n", op, err)
		return 1
	}
	if *nfc || cfg.Cipher.Normalize {
		text = norm.NFC.String(text)
	}

	c := cipher.New(m)
	var out string
	switch op {
	case opEncrypt:
		out = c.Encrypt(text)
	default:
		out = c.Decrypt(text)
	}

	_, _ = fmt.Fprintln(stdout, out)

	if *copyResult {
		if err := writeClipboard(out); err != nil {
			logger.Warn().Err(err).Msg("unable to copy result to clipboard")
			auditor := cliAuditor(cfg, logger)
			auditor.LogError(audit.EventClipboardFailed, "", err.Error())
			_ = auditor.Close()
		}
	}
	return 0
}

// inputText joins args, or reads all of stdin when there are none. A single
// trailing line break from stdin is dropped.
func inputText(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", err
	}
	text := strings.TrimSuffix(string(data), "\n")
	return strings.TrimSuffix(text, "\r"), nil
}

func mappingLabel(path string) string {
	if path == "" {
		return "default"
	}
	return path
}

// cliLogger writes human readable warnings to stderr.
func cliLogger() zerolog.Logger {
	logger, _ := logging.New(config.LoggingConfig{Level: "warn", Format: "console"}, stderr)
	return logger
}

// cliAuditor keeps stdout free for translated text.
func cliAuditor(cfg *config.Config, logger zerolog.Logger) audit.Auditor {
	auditCfg := &audit.Config{
		Enabled: cfg.Logging.Audit.Enabled,
		Level:   cfg.Logging.Audit.Level,
		Output:  cfg.Logging.Audit.Output,
	}
	if auditCfg.Output == "" || auditCfg.Output == "stdout" {
		return audit.NewWriterLogger(auditCfg, stderr)
	}
	auditor, err := audit.NewLogger(auditCfg)
	if err != nil {
		logger.Warn().Err(err).Msg("audit log unavailable")
		return audit.NewNopLogger()
	}
	return auditor
}
