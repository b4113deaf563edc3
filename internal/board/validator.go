package board

import (
	"encoding/json"
	"fmt"
	"strings"

	_ "embed"

	"github.com/KevinKickass/OpenPowerCore/internal/types"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/board-profile-v1.json
var boardProfileSchemaJSON string

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()

	if err := compiler.AddResource("board-profile-v1.json",
		strings.NewReader(boardProfileSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := compiler.Compile("board-profile-v1.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Validator{schema: schema}, nil
}

// ValidateDocument checks raw JSON against the board profile schema.
func (v *Validator) ValidateDocument(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// ValidateProfile checks the rules a schema cannot express: unique names
// and ports, and wiring that matches the interface type. NewRegistry runs
// it too, so hand-built profiles get the same checks as loaded ones.
func ValidateProfile(profile *types.BoardProfile) error {
	if profile == nil {
		return fmt.Errorf("nil board profile")
	}

	names := make(map[string]bool)
	ports := make(map[int]string)

	for i, iface := range profile.Interfaces {
		if iface.Name == AllInterfaces || iface.Name == strings.ToUpper(AllInterfaces) {
			return fmt.Errorf("interface %d: name %q is reserved", i, iface.Name)
		}
		if names[iface.Name] {
			return fmt.Errorf("duplicate interface name: %s", iface.Name)
		}
		names[iface.Name] = true

		if iface.SwitchPort != nil {
			if other, ok := ports[*iface.SwitchPort]; ok {
				return fmt.Errorf("switch port %d used by both %s and %s", *iface.SwitchPort, other, iface.Name)
			}
			ports[*iface.SwitchPort] = iface.Name
		}

		switch iface.Type {
		case types.InterfaceTypePlain:
			if iface.Detect != nil || iface.WakeGPIO != nil {
				return fmt.Errorf("interface %s: plain interfaces have no wake/detect wiring", iface.Name)
			}
		case types.InterfaceTypeModulePort:
			if iface.Detect == nil {
				return fmt.Errorf("interface %s: module_port requires detect", iface.Name)
			}
			if iface.WakeGPIO != nil {
				return fmt.Errorf("interface %s: module_port shares its wake/detect line, use module_port2 for a separate wake_gpio", iface.Name)
			}
		case types.InterfaceTypeModulePort2:
			if iface.Detect == nil || iface.WakeGPIO == nil {
				return fmt.Errorf("interface %s: module_port2 requires detect and wake_gpio", iface.Name)
			}
		default:
			return fmt.Errorf("interface %s: unknown type %q", iface.Name, iface.Type)
		}
	}

	return nil
}
