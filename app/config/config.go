package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	ModeTemplate  = "template"
	ModeAugmented = "augmented"
	ModeLLM       = "llm"

	LoadPolicyFailOpen   = "fail_open"
	LoadPolicyFailClosed = "fail_closed"

	DeliveryAtLeastOnce = "at_least_once"
	DeliveryAtMostOnce  = "at_most_once"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Log    Log    `yaml:"log"`
	Reddit Reddit `yaml:"reddit"`
	Agent  Agent  `yaml:"agent"`
	Files  Files  `yaml:"files"`
	Ledger Ledger `yaml:"ledger"`
	LLM    LLM    `yaml:"llm"`
	Fetch  Fetch  `yaml:"fetch"`
}

type Reddit struct {
	// ClientID of the reddit script application
	ClientID string `yaml:"client_id" example:"p-jcoLKBynTLew" validate:"required"`
	// Client secret of the reddit script application
	ClientSecret string `yaml:"client_secret" example:"gko_LXELoV07ZBNUXrvWZfzE3aI" validate:"required"`
	// Username of the bot account
	Username string `yaml:"username" example:"friendly_helper" validate:"required"`
	// Password of the bot account
	Password string `yaml:"password" validate:"required"`
	// User agent sent with every API request
	UserAgent string `yaml:"user_agent" example:"linux:forumscout:v1.0 (by /u/friendly_helper)"`
	// Token endpoint
	AuthURL string `yaml:"auth_url" example:"https://www.reddit.com/api/v1/access_token" validate:"omitempty,url"`
	// API base url
	APIURL string `yaml:"api_url" example:"https://oauth.reddit.com" validate:"omitempty,url"`
	// Log replies instead of posting them
	DryRun bool `yaml:"dry_run" example:"false"`
	// Per-request timeout, zero waits indefinitely
	Timeout time.Duration `yaml:"timeout" example:"30s" validate:"min=0"`
}

type Agent struct {
	// Forums (subreddits) scanned every cycle, in order
	Forums []string `yaml:"forums" example:"social,meetup" validate:"required,min=1,dive,required"`
	// Keywords matched case-insensitively against title and body
	Keywords []string `yaml:"keywords" example:"hangout,lonely" validate:"required,min=1,dive,required"`
	// Number of newest posts fetched per forum
	PostLimit int `yaml:"post_limit" example:"15" validate:"min=1,max=100"`
	// Pause after every successful reply
	ReplyCooldown time.Duration `yaml:"reply_cooldown" example:"10m"`
	// Pause between forums
	ForumDelay time.Duration `yaml:"forum_delay" example:"5s"`
	// Page scraped to enrich replies
	AugmentationURL string `yaml:"augmentation_url" example:"https://example.com/" validate:"omitempty,url"`
	// Response generation mode
	Mode string `yaml:"mode" example:"template" validate:"oneof=template augmented llm"`
	// Instructions prepended to every LLM prompt
	PromptPrefix string `yaml:"prompt_prefix"`
	// Max characters of scraped text quoted in augmented replies
	SnippetLength int `yaml:"snippet_length" example:"200" validate:"min=1"`
	// Max characters of scraped text passed to the LLM
	ContextLength int `yaml:"context_length" example:"1000" validate:"min=1"`
	// Reply used when no phrases are loaded
	FallbackPhrase string `yaml:"fallback_phrase" example:"Hello there!" validate:"required"`
}

type Files struct {
	// One response phrase per line
	Phrases string `yaml:"phrases" example:"response_phrases.txt" validate:"required"`
	// One proxy endpoint per line, # starts a comment
	Proxies string `yaml:"proxies" example:"proxies.txt" validate:"required"`
	// Append-only log of replied post ids
	Ledger string `yaml:"ledger" example:"replied_posts.txt" validate:"required"`
}

type Ledger struct {
	// What to do when the ledger file exists but cannot be read
	LoadPolicy string `yaml:"load_policy" example:"fail_open" validate:"oneof=fail_open fail_closed"`
	// Whether ids are recorded after (at_least_once) or before (at_most_once) the reply is submitted
	Delivery string `yaml:"delivery" example:"at_least_once" validate:"oneof=at_least_once at_most_once"`
}

type LLM struct {
	// Provider backend
	Provider string `yaml:"provider" example:"gemini" validate:"oneof=gemini openai"`
	// Model id
	Model string `yaml:"model" example:"gemini-1.5-pro" validate:"required"`
	// Base url for openai-compatible providers
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1" validate:"omitempty,url"`
	// API key, usually taken from GEMINI_API_KEY or OPENAI_API_KEY
	APIKey string `yaml:"api_key"`
	// Completion timeout
	Timeout time.Duration `yaml:"timeout" example:"60s"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"1" validate:"min=0,max=2"`
	// Completion token limit
	MaxTokens int `yaml:"max_tokens" example:"500" validate:"min=0"`
}

type Fetch struct {
	// Scrape timeout
	Timeout time.Duration `yaml:"timeout" example:"10s"`
	// User agent used for scraping
	UserAgent string `yaml:"user_agent"`
	// Max response body size
	MaxBytes int64 `yaml:"max_bytes" example:"2097152" validate:"min=0"`
}

type Log struct {
	// Minimum level: debug, info, warn, error
	Level string `yaml:"level" example:"debug" validate:"omitempty,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, oops.Errorf("failed to load .env file: %w", err)
	}

	var result Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.With("path", path).Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.With("path", path).Errorf("failed to parse YAML config: %w", err)
	}

	result.applyEnvOverrides()
	result.applyDefaults()

	if err = result.Validate(); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return oops.Errorf("failed to validate config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	setFromEnv(&c.Reddit.ClientID, "REDDIT_CLIENT_ID")
	setFromEnv(&c.Reddit.ClientSecret, "REDDIT_CLIENT_SECRET")
	setFromEnv(&c.Reddit.Username, "REDDIT_USERNAME")
	setFromEnv(&c.Reddit.Password, "REDDIT_PASSWORD")
	setFromEnv(&c.Log.Telegram.Token, "TELEGRAM_TOKEN")

	switch c.LLM.Provider {
	case ProviderOpenAI:
		setFromEnv(&c.LLM.APIKey, "OPENAI_API_KEY")
	default:
		setFromEnv(&c.LLM.APIKey, "GEMINI_API_KEY")
	}
}

func (c *Config) applyDefaults() {
	if c.Reddit.UserAgent == "" {
		c.Reddit.UserAgent = "linux:forumscout:v1.0"
	}
	if c.Reddit.AuthURL == "" {
		c.Reddit.AuthURL = "https://www.reddit.com/api/v1/access_token"
	}
	if c.Reddit.APIURL == "" {
		c.Reddit.APIURL = "https://oauth.reddit.com"
	}

	if c.Agent.PostLimit == 0 {
		c.Agent.PostLimit = 15
	}
	if c.Agent.ReplyCooldown == 0 {
		c.Agent.ReplyCooldown = 10 * time.Minute
	}
	if c.Agent.ForumDelay == 0 {
		c.Agent.ForumDelay = 5 * time.Second
	}
	if c.Agent.Mode == "" {
		c.Agent.Mode = ModeTemplate
	}
	if c.Agent.SnippetLength == 0 {
		c.Agent.SnippetLength = 200
	}
	if c.Agent.ContextLength == 0 {
		c.Agent.ContextLength = 1000
	}
	if c.Agent.FallbackPhrase == "" {
		c.Agent.FallbackPhrase = "Hello there!"
	}

	if c.Files.Phrases == "" {
		c.Files.Phrases = "response_phrases.txt"
	}
	if c.Files.Proxies == "" {
		c.Files.Proxies = "proxies.txt"
	}
	if c.Files.Ledger == "" {
		c.Files.Ledger = "replied_posts.txt"
	}

	if c.Ledger.LoadPolicy == "" {
		c.Ledger.LoadPolicy = LoadPolicyFailOpen
	}
	if c.Ledger.Delivery == "" {
		c.Ledger.Delivery = DeliveryAtLeastOnce
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gemini-1.5-pro"
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = time.Minute
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 1
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 500
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 10 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"
	}
	if c.Fetch.MaxBytes == 0 {
		c.Fetch.MaxBytes = 2 << 20
	}

	if c.Log.Level == "" {
		c.Log.Level = "debug"
	}
}

func setFromEnv(dst *string, key string) {
	if value := os.Getenv(key); value != "" {
		*dst = value
	}
}
