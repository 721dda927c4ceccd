package node

// ClassName is the key the node is registered under in the host
const ClassName = "AspectRatioLatentNode"

// Input describes one node input socket or widget
type Input struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default *int   `json:"default,omitempty"`
	Min     *int   `json:"min,omitempty"`
	Max     *int   `json:"max,omitempty"`
	Step    *int   `json:"step,omitempty"`
}

// Output describes one node return value
type Output struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Descriptor is the registration metadata the host needs to show and call the node
type Descriptor struct {
	ClassName   string   `json:"class_name"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	Function    string   `json:"function"`
	Required    []Input  `json:"required"`
	Optional    []Input  `json:"optional"`
	Outputs     []Output `json:"outputs"`
}

func intp(v int) *int { return &v }

// Describe returns the descriptor for a node using config's batch limits
func Describe(config Config) Descriptor {
	return Descriptor{
		ClassName:   ClassName,
		DisplayName: "Koala Aspect Ratio Empty Latent",
		Category:    "Koala",
		Function:    "create_latent",
		Required: []Input{
			{Name: "batch_size", Type: "INT", Default: intp(config.MinBatch), Min: intp(config.MinBatch), Max: intp(config.MaxBatch)},
		},
		Optional: []Input{
			{Name: "image", Type: "IMAGE"},
			{Name: "width", Type: "INT", Default: intp(config.Default.Width), Min: intp(64), Max: intp(8192), Step: intp(8)},
			{Name: "height", Type: "INT", Default: intp(config.Default.Height), Min: intp(64), Max: intp(8192), Step: intp(8)},
		},
		Outputs: []Output{
			{Name: "latent", Type: "LATENT"},
			{Name: "width", Type: "INT"},
			{Name: "height", Type: "INT"},
			{Name: "aspect_ratio", Type: "FLOAT"},
			{Name: "info", Type: "STRING"},
		},
	}
}

// Descriptors returns every node this module provides keyed by class name
func Descriptors() map[string]Descriptor {
	return map[string]Descriptor{
		ClassName: Describe(DefaultConfig()),
	}
}

// DisplayNames maps class names to their display names
func DisplayNames() map[string]string {
	out := make(map[string]string)
	for name, d := range Descriptors() {
		out[name] = d.DisplayName
	}
	return out
}
