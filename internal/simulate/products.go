package simulate

import (
	"fmt"

	"github.com/nvandessel/revsim/internal/rng"
	"github.com/nvandessel/revsim/internal/tables"
)

// productFamilies are the recurring product lines every contract draws
// from. The add-on is a one-time services product attached to the
// platform family only.
var productFamilies = []string{"platform", "analytics", "integrations", "support"}

const addOnFamily = "platform"

func generateProducts(r *rng.RNG) []tables.Product {
	out := make([]tables.Product, 0, len(productFamilies)+1)
	for i, fam := range productFamilies {
		out = append(out, tables.Product{
			CompanyID:         tables.CompanyID,
			ProductID:         fmt.Sprintf("PROD-%02d", i+1),
			ProductFamily:     fam,
			IsRecurring:       true,
			DefaultTermMonths: int64(r.ChoiceInt([]int{12, 24})),
		})
	}
	out = append(out, tables.Product{
		CompanyID:         tables.CompanyID,
		ProductID:         fmt.Sprintf("PROD-%02d", len(productFamilies)+1),
		ProductFamily:     addOnFamily,
		IsRecurring:       false,
		DefaultTermMonths: 0,
	})
	return out
}
