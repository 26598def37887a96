package search

// ResourceHint maps a technology keyword found in a question to metadata
// constraints: Require pins a metadata key to a value, Exclude lists the
// conflicting values of sibling technologies. Keeping this as data means new
// heuristics are rows, not new conditional branches.
type ResourceHint struct {
	Key     string
	Value   string
	Exclude []string
}

// HintTable maps lowercase query keywords to their constraint. Callers may
// supply their own table; DefaultHints covers the technologies the registry
// tags bundles with today.
type HintTable map[string]ResourceHint

// resourceGroup builds the hint rows for one metadata key: mentioning any
// member requires that member's value and excludes its siblings.
func resourceGroup(key string, members map[string][]string) HintTable {
	values := make([]string, 0, len(members))
	for value := range members {
		values = append(values, value)
	}

	table := HintTable{}
	for value, aliases := range members {
		var excludes []string
		for _, other := range values {
			if other != value {
				excludes = append(excludes, other)
			}
		}
		for _, alias := range aliases {
			table[alias] = ResourceHint{Key: key, Value: value, Exclude: excludes}
		}
	}
	return table
}

// DefaultHints returns the built-in keyword -> constraint table.
func DefaultHints() HintTable {
	table := HintTable{}

	datastores := resourceGroup("resource_type", map[string][]string{
		"postgres":      {"postgres", "postgresql"},
		"mysql":         {"mysql", "mariadb"},
		"mongodb":       {"mongodb", "mongo"},
		"redis":         {"redis"},
		"elasticsearch": {"elasticsearch", "opensearch"},
		"kafka":         {"kafka"},
		"rabbitmq":      {"rabbitmq"},
	})
	for k, v := range datastores {
		table[k] = v
	}

	ingresses := resourceGroup("ingress_type", map[string][]string{
		"nginx":   {"nginx"},
		"traefik": {"traefik"},
		"istio":   {"istio"},
	})
	for k, v := range ingresses {
		table[k] = v
	}

	return table
}

// platformKeywords maps query keywords to the registry's platform tags.
var platformKeywords = map[string]string{
	"kubernetes": "kubernetes",
	"k8s":        "kubernetes",
	"openshift":  "kubernetes",
	"gke":        "gcp",
	"gcp":        "gcp",
	"google":     "gcp",
	"aws":        "aws",
	"eks":        "aws",
	"amazon":     "aws",
	"azure":      "azure",
	"aks":        "azure",
}
