package model

// Layer is the directory-derived classification of a KDD artifact. The
// numeric prefix constrains allowed edge directions: higher layers may
// reference lower layers, not the reverse. 00-requirements is exempt.
type Layer string

const (
	LayerRequirements Layer = "00-requirements"
	LayerDomain       Layer = "01-domain"
	LayerBehavior     Layer = "02-behavior"
	LayerExperience   Layer = "03-experience"
	LayerVerification Layer = "04-verification"
)

// AllLayers lists the layers bottom-up.
var AllLayers = []Layer{
	LayerRequirements, LayerDomain, LayerBehavior,
	LayerExperience, LayerVerification,
}

// Numeric returns the leading numeric prefix (0-4) for ordering.
func (l Layer) Numeric() int {
	if len(l) < 2 {
		return -1
	}
	return int(l[0]-'0')*10 + int(l[1]-'0')
}

// Valid reports whether l is a recognized layer.
func (l Layer) Valid() bool {
	switch l {
	case LayerRequirements, LayerDomain, LayerBehavior, LayerExperience, LayerVerification:
		return true
	}
	return false
}
