package cmd

import (
	"fmt"
	"sort"

	"github.com/avplay-cli/avplay/util"
	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
)

// pick moves the file whose name best matches query to the front,
// keeping the others in their given order.
func pick(query string, files []string) ([]string, error) {
	stems := lo.Map(files, func(f string, _ int) string { return util.FileStem(f) })

	ranks := fuzzy.RankFindNormalizedFold(query, stems)
	if len(ranks) == 0 {
		return nil, fmt.Errorf("no file matches %q", query)
	}
	sort.Stable(ranks)

	best := ranks[0].OriginalIndex
	ordered := append([]string{files[best]}, files[:best]...)
	return append(ordered, files[best+1:]...), nil
}
