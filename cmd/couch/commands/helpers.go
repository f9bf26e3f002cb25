package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fivetwenty-io/couchdb-client/internal/constants"
	"github.com/fivetwenty-io/couchdb-client/pkg/couch"
	"github.com/fivetwenty-io/couchdb-client/pkg/couchclient"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatJSON  = constants.FormatJSON
	OutputFormatYAML  = constants.FormatYAML
	OutputFormatTable = constants.FormatTable

	defaultYAMLIndent = 2
)

// passwordReader reads a password from the terminal. Tests replace it.
var passwordReader = func(fd int) ([]byte, error) {
	if !term.IsTerminal(fd) {
		return nil, constants.ErrPasswordPrompt
	}

	return term.ReadPassword(fd)
}

// clientFactory builds the library client. Tests replace it.
var clientFactory = couchclient.New

// createClient builds a client from the viper settings: the --url,
// --username and --password flags, COUCH_* variables and the config file.
func createClient(cmd *cobra.Command) (couch.Client, error) {
	config, err := clientConfig(cmd)
	if err != nil {
		return nil, err
	}

	client, err := clientFactory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return client, nil
}

func clientConfig(cmd *cobra.Command) (*couch.Config, error) {
	url := viper.GetString("url")
	if url == "" {
		return nil, constants.ErrNoURLConfigured
	}

	config := &couch.Config{
		URL:         url,
		Username:    viper.GetString("username"),
		Password:    viper.GetString("password"),
		HTTPTimeout: viper.GetDuration("timeout"),
		RetryMax:    viper.GetInt("retries"),
		Debug:       viper.GetBool("debug"),
	}

	if config.Username != "" && config.Password == "" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Password for %s: ", config.Username)

		password, err := passwordReader(int(os.Stdin.Fd()))
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}

		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		config.Password = string(password)
	}

	if viper.GetBool("verbose") || config.Debug {
		config.Logger = NewStderrLogger(cmd.ErrOrStderr())
	}

	return config, nil
}

// StderrLogger writes library log entries as single lines.
type StderrLogger struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewStderrLogger creates a logger writing to out.
func NewStderrLogger(out io.Writer) *StderrLogger {
	return &StderrLogger{out: out, now: time.Now}
}

func (l *StderrLogger) Debug(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *StderrLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *StderrLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *StderrLogger) Error(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

func (l *StderrLogger) log(level, msg string, fields map[string]interface{}) {
	keys := sortedKeys(fields)

	var line strings.Builder

	line.WriteString(l.now().Format(time.RFC3339))
	line.WriteString(" ")
	line.WriteString(level)
	line.WriteString(" ")
	line.WriteString(msg)

	for _, key := range keys {
		_, _ = fmt.Fprintf(&line, " %s=%v", key, fields[key])
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, _ = fmt.Fprintln(l.out, line.String())
}

// outputFormat returns the validated --output value.
func outputFormat() (string, error) {
	format := strings.ToLower(viper.GetString("output"))

	switch format {
	case "", OutputFormatTable:
		return OutputFormatTable, nil
	case OutputFormatJSON, OutputFormatYAML:
		return format, nil
	default:
		return "", fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, format)
	}
}

// renderOutput writes data as JSON or YAML, or calls table for the table
// format.
func renderOutput(w io.Writer, data any, table func(*tablewriter.Table)) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	switch format {
	case OutputFormatJSON:
		return StandardJSONRenderer(w, data)
	case OutputFormatYAML:
		return StandardYAMLRenderer(w, data)
	default:
		t := tablewriter.NewWriter(w)
		table(t)

		if err := t.Render(); err != nil {
			return fmt.Errorf("failed to render table: %w", err)
		}

		return nil
	}
}

// StandardJSONRenderer writes indented JSON.
func StandardJSONRenderer(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}

	return nil
}

// StandardYAMLRenderer writes YAML.
func StandardYAMLRenderer(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(defaultYAMLIndent)

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}

	return encoder.Close()
}

// renderSaveResult prints the outcome of a write.
func renderSaveResult(w io.Writer, action string, result *couch.SaveResult) error {
	return renderOutput(w, result, func(table *tablewriter.Table) {
		status := constants.CheckMarkSymbol + " " + action
		if !result.OK {
			status = constants.CrossMarkSymbol + " " + action + " lost to a concurrent update"
		}

		table.Header("Property", "Value")
		_ = table.Append("Status", status)
		_ = table.Append("ID", result.ID)
		_ = table.Append("Revision", result.Rev)
	})
}

// readDocument parses a JSON object given inline, as @path, or as "-" for
// stdin.
func readDocument(cmd *cobra.Command, arg string) (couch.Document, error) {
	var data []byte

	switch {
	case arg == "-":
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}

		data = raw
	case strings.HasPrefix(arg, "@"):
		raw, err := os.ReadFile(strings.TrimPrefix(arg, "@"))
		if err != nil {
			return nil, fmt.Errorf("reading document file: %w", err)
		}

		data = raw
	default:
		data = []byte(arg)
	}

	var doc couch.Document

	err := json.Unmarshal(data, &doc)
	if err != nil || doc == nil {
		return nil, fmt.Errorf("%w: %s", constants.ErrInvalidDocument, strings.TrimSpace(string(data)))
	}

	return doc, nil
}

// parseKey reads a view key as JSON. Text that is not valid JSON is taken as
// a string.
func parseKey(text string) any {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		return value
	}

	return text
}

// parseViewSpecs turns name=source pairs into a map.
func parseViewSpecs(specs []string) (map[string]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	views := make(map[string]string, len(specs))

	for _, spec := range specs {
		name, source, ok := strings.Cut(spec, "=")
		if !ok || name == "" || source == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidViewSpec, spec)
		}

		if strings.HasPrefix(source, "@") {
			raw, err := os.ReadFile(strings.TrimPrefix(source, "@"))
			if err != nil {
				return nil, fmt.Errorf("reading view %s: %w", name, err)
			}

			source = string(raw)
		}

		views[name] = source
	}

	return views, nil
}

// formatValue renders a JSON value for a table cell.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(raw)
	}
}

// sortedKeys returns the keys of m in order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
