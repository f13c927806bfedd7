package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/cv-screener/internal/collab/remote"
	"github.com/spigell/cv-screener/internal/mail"
	"github.com/spigell/cv-screener/internal/screening"
)

const (
	app = "cv-screener"
)

type Config struct {
	Candidates    string              `mapstructure:"candidates"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
	QA            QAConfig            `mapstructure:"qa"`
	Weights       screening.WeightSet `mapstructure:"weights"`
	Mail          MailConfig          `mapstructure:"mail"`
	Transcript    TranscriptConfig    `mapstructure:"transcript"`
	Server        ServerConfig        `mapstructure:"server"`
}

type CollaboratorsConfig struct {
	Mode   string        `mapstructure:"mode"`
	Remote remote.Config `mapstructure:"remote"`
}

type QAConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey       string `mapstructure:"api-key"`
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type MailConfig struct {
	Provider    string           `mapstructure:"provider"`
	From        string           `mapstructure:"from"`
	Subject     string           `mapstructure:"subject"`
	MaxParallel int              `mapstructure:"max-parallel"`
	Gmail       mail.GmailConfig `mapstructure:"gmail"`
}

type TranscriptConfig struct {
	Database string `mapstructure:"database"`
}

type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "cv-screener is a conversational assistant for scoring resumes and inviting candidates",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"qa.gemini.api-key-file":     "GEMINI_API_KEY_FILE",
		"mail.gmail.token-file":      "GMAIL_TOKEN_FILE",
		"collaborators.remote.token": "CV_SCREENER_BACKEND_TOKEN",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is cv-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	w := screening.DefaultWeights()
	viper.SetDefault("weights.skills", w.Skills)
	viper.SetDefault("weights.education", w.Education)
	viper.SetDefault("weights.experience", w.Experience)
	viper.SetDefault("weights.certifications", w.Certifications)

	viper.SetDefault("collaborators.mode", modeLocal)
	viper.SetDefault("collaborators.remote.base-url", "http://localhost:5000")
	viper.SetDefault("qa.provider", providerKeyword)
	viper.SetDefault("mail.provider", providerLog)
	viper.SetDefault("mail.max-parallel", 4)
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.shutdown-timeout", 10*time.Second)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every setting has a default, so a missing default config file is fine.
	// An explicit --config must exist and parse.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
