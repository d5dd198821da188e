package graph

import "github.com/kitchenlens/relgraph/pkg/common"

func formatScalar(v any) (string, bool) {
	return common.ScalarString(v)
}
