package criteria

import (
	"github.com/handrail/handrail/service/dao"
)

// FilterByRisk evaluates the optional "Risk" List parameter against an item's
// risk level. With no parameters everything matches.
func FilterByRisk(risk string, parameters []*dao.Parameter) bool {
	switch len(parameters) {
	case 0:
		return true
	case 1:
		if parameters[0].Name == "Risk" {
			switch actual := parameters[0].Value.(type) {
			case string:
				return risk == actual
			case []string:
				for _, r := range actual {
					if risk == r {
						return true
					}
				}
				return false
			}
		}
	}
	return true
}
