package models

// Profile is a named set of a1.art connection parameters.
// API keys are opaque strings and are never logged or serialized to clients.
type Profile struct {
	Name      string `json:"name"`
	AppID     string `json:"app_id"`
	APIKey    string `json:"-"`
	VersionID string `json:"version_id"`
	CnetID    string `json:"cnet_id"`
	CnetPath  string `json:"cnet_path"`
}

// WithDefaults returns a copy of p where blank fields are taken from def.
func (p Profile) WithDefaults(def Profile) Profile {
	if p.AppID == "" {
		p.AppID = def.AppID
	}
	if p.APIKey == "" {
		p.APIKey = def.APIKey
	}
	if p.VersionID == "" {
		p.VersionID = def.VersionID
	}
	if p.CnetID == "" {
		p.CnetID = def.CnetID
	}
	if p.CnetPath == "" {
		p.CnetPath = def.CnetPath
	}
	return p
}
