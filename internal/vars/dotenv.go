package vars

import (
	"fmt"
	"sort"

	"github.com/joho/godotenv"
)

// ImportDotenv upserts every entry of a .env file into scope, in key
// order. It returns how many variables were written.
func (e *Environments) ImportDotenv(scope, path string) (int, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return 0, fmt.Errorf("read dotenv %s: %w", path, err)
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([][2]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2]string{k, values[k]})
	}
	return e.SetVariables(scope, pairs)
}
