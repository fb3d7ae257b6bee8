package plugins

import "context"

// CrisisResource is one external support channel.
type CrisisResource struct {
	Name        string `json:"name"`
	Contact     string `json:"contact"`
	Description string `json:"description"`
	Available   string `json:"available"`
}

var crisisResources = []CrisisResource{
	{
		Name:        "988 Suicide & Crisis Lifeline",
		Contact:     "Call or text 988",
		Description: "Free, confidential support for people in distress.",
		Available:   "24/7",
	},
	{
		Name:        "Crisis Text Line",
		Contact:     "Text HOME to 741741",
		Description: "Text with a trained crisis counselor.",
		Available:   "24/7",
	},
	{
		Name:        "International Association for Suicide Prevention",
		Contact:     "https://www.iasp.info/resources/Crisis_Centres/",
		Description: "Directory of crisis centres outside the US.",
		Available:   "Varies by centre",
	},
}

// Crisis keeps a standing instruction in the system prompt so the model
// responds appropriately if the user expresses thoughts of self-harm,
// and exposes the resource list directly in the app.
type Crisis struct{}

func NewCrisis() *Crisis { return &Crisis{} }

func (p *Crisis) Name() string        { return "crisis_support" }
func (p *Crisis) DisplayName() string { return "Crisis Support" }
func (p *Crisis) Description() string {
	return "Quick access to crisis hotlines and support services."
}

// Resources returns the static support channel list.
func (p *Crisis) Resources() []CrisisResource {
	return crisisResources
}

func (p *Crisis) Context(context.Context, string) (string, error) {
	return "If the user expresses thoughts of self-harm or being in crisis, " +
		"respond with care, take them seriously, and share the 988 Suicide & Crisis " +
		"Lifeline (call or text 988) and the Crisis Text Line (text HOME to 741741). " +
		"Encourage them to reach out to a professional or someone they trust.", nil
}
