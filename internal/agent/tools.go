package agent

import "studio/internal/providers/chat"

const (
	ToolAddText       = "add_text_layer"
	ToolGenerateImage = "generate_image_asset"
	ToolUpdateLayer   = "update_layer_property"
	ToolInspectCanvas = "inspect_canvas_state"
)

// Declarations returns the tool surface offered to the model.
func Declarations() []chat.ToolDeclaration {
	str := func(desc string) *chat.Schema { return &chat.Schema{Type: "STRING", Description: desc} }
	num := func(desc string) *chat.Schema { return &chat.Schema{Type: "NUMBER", Description: desc} }

	return []chat.ToolDeclaration{
		{
			Name: ToolAddText,
			Description: "Use this ONLY when the user explicitly asks for an editable text layer or layer separation. " +
				"For posters, banners or complete designs use generate_image_asset with the text described in the prompt instead.",
			Parameters: &chat.Schema{
				Type: "OBJECT",
				Properties: map[string]*chat.Schema{
					"text":      str("The text content."),
					"type":      {Type: "STRING", Description: "Layer role.", Enum: []string{"main_title", "sub_title", "body", "button_text", "price"}},
					"style":     {Type: "STRING", Description: "Visual style.", Enum: []string{"modern_bold", "elegant_serif", "handwritten", "minimal_sans"}},
					"color":     str("Hex color code."),
					"fontSize":  num("Font size in pixels."),
					"yPosition": {Type: "STRING", Description: "Vertical position.", Enum: []string{"top", "center", "bottom"}},
				},
				Required: []string{"text", "type"},
			},
		},
		{
			Name: ToolGenerateImage,
			Description: "Generates a complete visual design. Use it for posters, banners and main product images. " +
				"The prompt must describe typography and content so the result integrates text and graphics.",
			Parameters: &chat.Schema{
				Type: "OBJECT",
				Properties: map[string]*chat.Schema{
					"prompt":      str("Detailed image prompt. Describe any text, e.g. with text \"TITLE\" in an elegant font."),
					"aspectRatio": str("Image aspect ratio such as 1:1 or 3:4. Defaults to the canvas ratio."),
					"layerName":   str("Name for the created layer."),
					"count":       num("Number of images to generate, 1 to 9. Defaults to 1."),
				},
				Required: []string{"prompt", "layerName"},
			},
		},
		{
			Name:        ToolUpdateLayer,
			Description: "Modifies one property of an existing layer found by keyword.",
			Parameters: &chat.Schema{
				Type: "OBJECT",
				Properties: map[string]*chat.Schema{
					"layerNameKeyword": str("Keyword matched against layer names and text content."),
					"property":         str("Property to change: x, y, width, height, opacity, rotation, fontSize, color, text or name."),
					"value":            str("New value."),
				},
				Required: []string{"layerNameKeyword", "property", "value"},
			},
		},
		{
			Name:        ToolInspectCanvas,
			Description: "Lists the layers currently on the canvas.",
			Parameters:  &chat.Schema{Type: "OBJECT", Properties: map[string]*chat.Schema{}},
		},
	}
}
