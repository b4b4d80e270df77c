// Package prompts holds the model prompts notewise sends, compiled into the
// binary as .tmpl files, and lets a user replace any of them without a
// rebuild.
//
// A file <key>.tmpl in the prompts directory of the notewise home takes the
// place of the embedded prompt with that key. `notewise prompts export`
// writes the defaults there as a starting point and `notewise prompts reset`
// removes an override again.
package prompts

// EmbeddedPrompt is a default prompt registered by the package that sends
// it, e.g. extraction.system or advisory.ranking.
type EmbeddedPrompt struct {
	Key         string
	Text        string
	Description string
	// Variables and Hash are filled by Register when left empty.
	Variables []string
	Hash      string
}

// ResolvedPrompt is the text that will actually be sent for a key.
type ResolvedPrompt struct {
	Key        string   `json:"key" yaml:"key"`
	Text       string   `json:"text" yaml:"text"`
	Variables  []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	IsOverride bool     `json:"is_override" yaml:"is_override"`
	Hash       string   `json:"hash" yaml:"hash"`
	// Path is set only for overrides.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`
}

// PromptInfo is one row of `notewise prompts list`.
type PromptInfo struct {
	Key         string   `json:"key" yaml:"key"`
	Description string   `json:"description" yaml:"description"`
	Variables   []string `json:"variables,omitempty" yaml:"variables,omitempty"`
	Overridden  bool     `json:"overridden" yaml:"overridden"`
}
