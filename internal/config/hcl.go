package config

import (
	"errors"

	"github.com/hashicorp/hcl"
)

// hclParser reads HCL config files into koanf
type hclParser struct{}

// HCLParser returns a koanf parser for HCL. Blocks decode to one-element
// lists, which are flattened so
//
//	dataverse {
//	  projects { table = "sgr_projects" }
//	}
//
// yields dataverse.projects.table. Repeated blocks, like fixtures, stay lists.
func HCLParser() *hclParser {
	return &hclParser{}
}

func (p *hclParser) Unmarshal(b []byte) (map[string]interface{}, error) {
	var out map[string]interface{}
	if err := hcl.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	flattenHCLBlocks(out)
	return out, nil
}

func (p *hclParser) Marshal(map[string]interface{}) ([]byte, error) {
	return nil, errors.New("hcl: marshalling is not supported")
}

func flattenHCLBlocks(m map[string]interface{}) {
	for key, v := range m {
		switch val := v.(type) {
		case []map[string]interface{}:
			for _, block := range val {
				flattenHCLBlocks(block)
			}
			if len(val) == 1 {
				m[key] = val[0]
			}
		case map[string]interface{}:
			flattenHCLBlocks(val)
		case []interface{}:
			for _, item := range val {
				if block, ok := item.(map[string]interface{}); ok {
					flattenHCLBlocks(block)
				}
			}
		}
	}
}
