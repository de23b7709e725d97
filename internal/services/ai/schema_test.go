package ai

import (
	"reflect"
	"testing"

	"google.golang.org/genai"
)

func testSchema() *Schema {
	return &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"items": {
				Type:     TypeArray,
				MinItems: Int64(1),
				Items: &Schema{
					Type: TypeObject,
					Properties: map[string]*Schema{
						"question": {Type: TypeString},
						"correctIndex": {Type: TypeInteger, Minimum: Float(0), Maximum: Float(3)},
					},
					Required: []string{"question", "correctIndex"},
				},
			},
		},
		Required: []string{"items"},
	}
}

func TestSchema_Map(t *testing.T) {
	t.Parallel()

	m := testSchema().Map()
	if m["type"] != TypeObject {
		t.Errorf("Expected object type, got %v", m["type"])
	}
	if m["additionalProperties"] != false {
		t.Error("Expected objects to be closed")
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		t.Fatalf("Expected properties map, got %T", m["properties"])
	}
	items, ok := props["items"].(map[string]any)
	if !ok {
		t.Fatalf("Expected items schema, got %T", props["items"])
	}
	if items["minItems"] != int64(1) {
		t.Errorf("Expected minItems=1, got %v", items["minItems"])
	}
	inner, ok := items["items"].(map[string]any)
	if !ok {
		t.Fatalf("Expected element schema, got %T", items["items"])
	}
	if !reflect.DeepEqual(inner["required"], []string{"question", "correctIndex"}) {
		t.Errorf("Unexpected required list %v", inner["required"])
	}
	if (*Schema)(nil).Map() != nil {
		t.Error("Expected nil schema to render nil")
	}
}

func TestToGenaiSchema(t *testing.T) {
	t.Parallel()

	s := toGenaiSchema(testSchema())
	if s.Type != genai.TypeObject {
		t.Errorf("Expected OBJECT, got %v", s.Type)
	}
	items := s.Properties["items"]
	if items == nil || items.Type != genai.TypeArray {
		t.Fatalf("Expected array items, got %+v", items)
	}
	idx := items.Items.Properties["correctIndex"]
	if idx.Type != genai.TypeInteger || idx.Maximum == nil || *idx.Maximum != 3 {
		t.Errorf("Expected bounded integer, got %+v", idx)
	}
}

func TestBuildContents(t *testing.T) {
	t.Parallel()

	history := []Turn{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	}

	t.Run("text only", func(t *testing.T) {
		t.Parallel()
		contents := buildContents(history, "next", nil)
		if len(contents) != 3 {
			t.Fatalf("Expected 3 contents, got %d", len(contents))
		}
		if contents[1].Role != string(genai.RoleModel) {
			t.Errorf("Expected assistant turn to map to model role, got %q", contents[1].Role)
		}
		last := contents[2]
		if last.Role != string(genai.RoleUser) || len(last.Parts) != 1 || last.Parts[0].Text != "next" {
			t.Errorf("Unexpected final content %+v", last)
		}
	})

	t.Run("audio only", func(t *testing.T) {
		t.Parallel()
		contents := buildContents(nil, "", &Audio{MIMEType: "audio/webm", Data: []byte{1, 2}})
		parts := contents[len(contents)-1].Parts
		if len(parts) != 1 || parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "audio/webm" {
			t.Errorf("Expected a single inline audio part, got %+v", parts)
		}
	})

	t.Run("text and audio", func(t *testing.T) {
		t.Parallel()
		contents := buildContents(nil, "listen", &Audio{MIMEType: "audio/ogg", Data: []byte{1}})
		if n := len(contents[0].Parts); n != 2 {
			t.Errorf("Expected text and audio parts, got %d", n)
		}
	})
}
