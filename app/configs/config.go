package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	HTTP          HTTPConfig          `json:"http"`
	Skills        SkillsConfig        `json:"skills"`
	Collaborators CollaboratorsConfig `json:"collaborators"`
	Schedule      ScheduleConfig      `json:"schedule"`
}

type HTTPConfig struct {
	Port int `json:"port"`
}

type SkillsConfig struct {
	NotionTasksDatabaseID  string `json:"notion_tasks_database_id"`
	InternalEmailDomain    string `json:"internal_email_domain"`
	MaxDigestItems         int    `json:"max_digest_items"`
	MaxPrepItems           int    `json:"max_prep_items"`
	MaxFollowUps           int    `json:"max_follow_ups"`
	EmailLookbackDays      int    `json:"email_lookback_days"`
	CollaboratorTimeoutSec int    `json:"collaborator_timeout_sec"`
}

type CollaboratorsConfig struct {
	CalendarBaseURL      string `json:"calendar_base_url"`
	NotionBaseURL        string `json:"notion_base_url"`
	EmailBaseURL         string `json:"email_base_url"`
	PocketBaseURL        string `json:"pocket_base_url"`
	OpenAIModel          string `json:"openai_model"`
	LearningPlanWeeks    int    `json:"learning_plan_weeks"`
	LearningPlanArticles int    `json:"learning_plan_articles"`
}

type ScheduleConfig struct {
	DigestEnabled    bool   `json:"digest_enabled"`
	DigestCron       string `json:"digest_cron"`
	DigestUserID     string `json:"digest_user_id"`
	DigestTimePeriod string `json:"digest_time_period"`
}

// Secrets are sourced from the environment only, never written to the
// config file.
type Secrets struct {
	OpenAIAPIKey      string
	PocketConsumerKey string
	PocketAccessToken string
}

type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

func DefaultPath() string {
	return filepath.Join("config", "config.json")
}

func NewManager(path string) (*Manager, error) {
	cfg := defaultConfig()
	mgr := &Manager{
		path: path,
		cfg:  cfg,
	}
	if err := mgr.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	mgr.applyEnvLocked()
	if err := mgr.save(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Update(apply func(*Config)) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.cfg)
	applyDefaults(&m.cfg)
	if err := m.saveLocked(); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

// LoadSecrets reads collaborator credentials from the environment.
// Absence of any one key is a scoped, per-skill degradation, never a
// startup failure.
func LoadSecrets() Secrets {
	return Secrets{
		OpenAIAPIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		PocketConsumerKey: strings.TrimSpace(os.Getenv("POCKET_CONSUMER_KEY")),
		PocketAccessToken: strings.TrimSpace(os.Getenv("POCKET_ACCESS_TOKEN")),
	}
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	m.cfg = fileCfg
	applyDefaults(&m.cfg)
	return nil
}

// applyEnvLocked overlays environment values on top of the file config.
// The tasks database id keeps its historical variable name.
func (m *Manager) applyEnvLocked() {
	if v := strings.TrimSpace(os.Getenv("ATOM_NOTION_TASKS_DATABASE_ID")); v != "" {
		m.cfg.Skills.NotionTasksDatabaseID = v
	}
	if v := strings.TrimSpace(os.Getenv("ATOM_CALENDAR_BASE_URL")); v != "" {
		m.cfg.Collaborators.CalendarBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ATOM_NOTION_BASE_URL")); v != "" {
		m.cfg.Collaborators.NotionBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ATOM_EMAIL_BASE_URL")); v != "" {
		m.cfg.Collaborators.EmailBaseURL = v
	}
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

func defaultConfig() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Skills.MaxDigestItems <= 0 {
		cfg.Skills.MaxDigestItems = 5
	}
	if cfg.Skills.MaxPrepItems <= 0 {
		cfg.Skills.MaxPrepItems = 3
	}
	if cfg.Skills.MaxFollowUps <= 0 {
		cfg.Skills.MaxFollowUps = 7
	}
	if cfg.Skills.EmailLookbackDays <= 0 {
		cfg.Skills.EmailLookbackDays = 7
	}
	if cfg.Skills.CollaboratorTimeoutSec <= 0 {
		cfg.Skills.CollaboratorTimeoutSec = 15
	}
	if strings.TrimSpace(cfg.Collaborators.OpenAIModel) == "" {
		cfg.Collaborators.OpenAIModel = "gpt-4o-mini"
	}
	if cfg.Collaborators.LearningPlanWeeks <= 0 {
		cfg.Collaborators.LearningPlanWeeks = 4
	}
	if cfg.Collaborators.LearningPlanArticles <= 0 {
		cfg.Collaborators.LearningPlanArticles = 12
	}
	if strings.TrimSpace(cfg.Schedule.DigestCron) == "" {
		cfg.Schedule.DigestCron = "0 8 * * MON"
	}
	if strings.TrimSpace(cfg.Schedule.DigestTimePeriod) == "" {
		cfg.Schedule.DigestTimePeriod = "last week"
	}
}
