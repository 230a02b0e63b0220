package geo

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadAliases reads a YAML map of dataset region spellings to boundary
// feature names, e.g.
//
//	Orissa: Odisha
//	Pondicherry: Puducherry
//
// A missing file is not an error; an unreadable or malformed one is.
func LoadAliases(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "geo: read alias file")
	}

	aliases := make(map[string]string)
	if err := yaml.Unmarshal(raw, &aliases); err != nil {
		return nil, eris.Wrap(err, "geo: parse alias file")
	}
	return aliases, nil
}
