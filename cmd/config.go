package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/relstatus/internal/gauge"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "relstatus"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage relstatus configuration.

Running bare 'relstatus config' is the same as 'relstatus config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# relstatus configuration
# See: relstatus config show (for effective values and sources)

# Release series to report on (Launchpad series name)
series: "{{ .Series }}"

# Launchpad projects whose blueprints are tracked
products:
{{- range .Products }}
  - {{ . }}
{{- else }}
  # - nova
  # - glance
{{- end }}

# Release date (YYYY-MM-DD)
release_date: "{{ .ReleaseDate }}"

# Release cycle phases, oldest first: [days, "label"] (at least 3)
milestones:
{{- range .Milestones }}
  - [{{ .Days }}, "{{ .Label }}"]
{{- else }}
  # - [35, "M1"]
  # - [42, "M2"]
  # - [35, "M3"]
{{- end }}

# Gerrit code review (queried over ssh)
review:
  host: "{{ .ReviewHost }}"
  port: {{ .ReviewPort }}
  project_prefix: "{{ .ProjectPrefix }}"
  branch: "{{ .Branch }}"
  # Changes older than this are ignored (Gerrit age syntax)
  max_age: "{{ .MaxAge }}"

# Launchpad web service root
launchpad:
  api_url: "{{ .LaunchpadURL }}"

# Claude, for 'relstatus digest'
anthropic:
  # api_key: ""
  model: "{{ .AnthropicModel }}"
`

type configTemplateData struct {
	Series         string
	Products       []string
	ReleaseDate    string
	Milestones     []gauge.Entry
	ReviewHost     string
	ReviewPort     int
	ProjectPrefix  string
	Branch         string
	MaxAge         string
	LaunchpadURL   string
	AnthropicModel string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	milestones, err := parseSchedule(viper.Get("milestones"))
	if err != nil {
		return err
	}
	data := configTemplateData{
		Series:         viper.GetString("series"),
		Products:       viper.GetStringSlice("products"),
		ReleaseDate:    viper.GetString("release_date"),
		Milestones:     milestones,
		ReviewHost:     viper.GetString("review.host"),
		ReviewPort:     viper.GetInt("review.port"),
		ProjectPrefix:  viper.GetString("review.project_prefix"),
		Branch:         viper.GetString("review.branch"),
		MaxAge:         viper.GetString("review.max_age"),
		LaunchpadURL:   viper.GetString("launchpad.api_url"),
		AnthropicModel: viper.GetString("anthropic.model"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	if dryRun {
		ui.DryRunMsg("Would create config file: %s", cfgPath)
		fmt.Fprintln(ui.Out)
		fmt.Fprint(ui.Out, buf.String())
		return nil
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "series", EnvVar: "RELSTATUS_SERIES"},
	{Key: "products", EnvVar: "RELSTATUS_PRODUCTS"},
	{Key: "release_date", EnvVar: "RELSTATUS_RELEASE_DATE"},
	{Key: "milestones", EnvVar: "RELSTATUS_MILESTONES"},
	{Key: "review.host", EnvVar: "RELSTATUS_REVIEW_HOST"},
	{Key: "review.port", EnvVar: "RELSTATUS_REVIEW_PORT"},
	{Key: "review.project_prefix", EnvVar: "RELSTATUS_REVIEW_PROJECT_PREFIX"},
	{Key: "review.branch", EnvVar: "RELSTATUS_REVIEW_BRANCH"},
	{Key: "review.max_age", EnvVar: "RELSTATUS_REVIEW_MAX_AGE"},
	{Key: "launchpad.api_url", EnvVar: "RELSTATUS_LAUNCHPAD_API_URL"},
	{Key: "anthropic.model", EnvVar: "RELSTATUS_ANTHROPIC_MODEL"},
	{Key: "port", EnvVar: "RELSTATUS_PORT"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-24s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set; set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'relstatus config init' first)", cfgPath)
	}

	if dryRun {
		ui.DryRunMsg("Would open %s in %s", cfgPath, editor)
		return nil
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
