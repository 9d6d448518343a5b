package model

// Persona describes how the generated voice agent should behave.
type Persona struct {
	Role     string `json:"role" yaml:"role"`
	Tone     string `json:"tone" yaml:"tone"`
	Language string `json:"language" yaml:"language"` // ISO 639-1 code
}

// AgentRequest is everything needed to provision an agent from a website.
type AgentRequest struct {
	URL      string  `json:"url" yaml:"url"`
	Name     string  `json:"name" yaml:"name"`
	MaxPages int     `json:"max_pages" yaml:"max_pages"`
	Persona  Persona `json:"persona" yaml:"persona"`
	VoiceID  string  `json:"voice_id" yaml:"voice_id"`
	DryRun   bool    `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// AgentConfig is the generated conversational configuration.
type AgentConfig struct {
	SystemPrompt string `json:"system_prompt" yaml:"system_prompt"`
	Greeting     string `json:"greeting" yaml:"greeting"`
}

// Agent identifies a provisioned remote agent.
type Agent struct {
	ID  string `json:"id" yaml:"id"`
	URL string `json:"url" yaml:"url"`
}

// Voice is a selectable text-to-speech voice.
type Voice struct {
	ID       string `json:"voice_id" yaml:"voice_id"`
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
}

// DefaultRoles are the suggested agent roles.
var DefaultRoles = []string{
	"Customer advisor",
	"Sales representative",
	"Q&A assistant",
	"Website guide",
}

// DefaultTones are the suggested agent tones.
var DefaultTones = []string{
	"Formal",
	"Informal",
	"Professional",
	"Friendly",
}
