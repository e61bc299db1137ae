/*
 * Copyright 2024 vvLab and its licensors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License, version 3,
 * as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package bootstrap

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap"
	"github.com/vvlab-dev/ConcreteCMS-keycloak/claimmap/conversion"
)

// attributesConfData is the structure of the attributes conf file which
// declares the local profile attributes claims can be mapped to.
type attributesConfData struct {
	Attributes []struct {
		Handle   string `yaml:"handle"`
		Type     string `yaml:"type"`
		Name     string `yaml:"name"`
		RichText bool   `yaml:"rich_text"`
	} `yaml:"attributes"`
}

// LoadAttributeCatalog parses the attributes conf file into a static
// attribute catalog. An empty path yields an empty catalog, which limits
// claim maps to field and group mappings.
func LoadAttributeCatalog(confPath string) (claimmap.StaticCatalog, error) {
	if confPath == "" {
		return claimmap.NewStaticCatalog(), nil
	}

	confFile, err := ioutil.ReadFile(confPath)
	if err != nil {
		return nil, err
	}
	confData := &attributesConfData{}
	if err := yaml.Unmarshal(confFile, confData); err != nil {
		return nil, err
	}

	keys := make([]conversion.AttributeKey, 0, len(confData.Attributes))
	for _, entry := range confData.Attributes {
		if entry.Handle == "" {
			return nil, fmt.Errorf("attribute entry has no handle")
		}
		switch entry.Type {
		case conversion.TypeText, conversion.TypeTextarea, conversion.TypeNumber, conversion.TypeBoolean, conversion.TypeAddress:
		default:
			return nil, fmt.Errorf("attribute %s has unknown type %s", entry.Handle, entry.Type)
		}
		keys = append(keys, conversion.AttributeKey{
			Handle:     entry.Handle,
			TypeHandle: entry.Type,
			Name:       entry.Name,
			RichText:   entry.RichText,
		})
	}

	return claimmap.NewStaticCatalog(keys...), nil
}
