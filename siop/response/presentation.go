package response

import (
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/xeipuuv/gojsonschema"

	"github.com/pilacorp/go-siop-sdk/siop/common/jsonmap"
)

// presentationSchema requires a vp_token payload to carry at least one
// recognizable piece of evidence.
const presentationSchema = `{
  "type": "object",
  "anyOf": [
    {"required": ["verifiableCredential"]},
    {"required": ["vp"]},
    {
      "required": ["presentation_submission"],
      "properties": {
        "presentation_submission": {
          "type": "object",
          "required": ["descriptor_map"],
          "properties": {
            "descriptor_map": {
              "type": "array",
              "items": {
                "type": "object",
                "required": ["id", "path"],
                "properties": {"path": {"type": "string"}}
              }
            }
          }
        }
      }
    }
  ]
}`

var presentationLoader = gojsonschema.NewStringLoader(presentationSchema)

// checkPresentation validates the structure of a vp_token payload. When a
// presentation_submission is present, every descriptor path must resolve in
// the payload.
func checkPresentation(payload jsonmap.JSONMap) error {
	result, err := gojsonschema.Validate(presentationLoader, gojsonschema.NewGoLoader(map[string]interface{}(payload)))
	if err != nil {
		return fmt.Errorf("failed to validate vp_token: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("vp_token lacks presentation evidence: %s", strings.Join(msgs, "; "))
	}

	submission, ok := payload.GetMap("presentation_submission")
	if !ok {
		return nil
	}
	descriptors, _ := submission["descriptor_map"].([]interface{})
	for _, d := range descriptors {
		desc, _ := d.(map[string]interface{})
		path, _ := desc["path"].(string)
		if path == "" {
			continue
		}
		if _, err := jsonpath.Get(path, map[string]interface{}(payload)); err != nil {
			return fmt.Errorf("descriptor %v path %s does not resolve: %w", desc["id"], path, err)
		}
	}

	return nil
}
