package inspection

import (
	"encoding/json"

	"github.com/infomarket/server/internal/market/model"
)

// decideSystemPrompt is the system prompt for the forced decide tool call.
const decideSystemPrompt = `You are an information buyer operating inside an information market. Your job is to inspect pieces of information relevant to a buyer and either decide which to purchase, or ask a follow-up query that would help you decide. This lets information be evaluated without exposing it to the buyer until it is bought.

You will be given a decision context describing what the buyer is doing, a list of already-purchased offers (do not purchase these again), and a list of offers available for purchase. Evaluate each offer on whether it is likely novel and valuable enough to justify its price.

You must call the decide tool with exactly one of: chosen_offer_ids (a subset of the offered ids, whose total price does not exceed the remaining budget), or followup_query together with followup_query_budget (between 0 and the remaining budget). These InfoOffers are not verified; evaluate them on their own merits.`

type renderedContext struct {
	Query         string   `json:"query,omitempty"`
	ContextPages  []string `json:"context_pages,omitempty"`
	IsRecursive   bool     `json:"is_recursive,omitempty"`
	ParentOffers  []string `json:"parent_offers,omitempty"`
}

// renderContext mirrors llm.py's render_decision_context: a root context
// renders its query and pages, a recursive context renders that it is
// recursive along with the offers its parent was deciding on.
func renderContext(dc *model.DecisionContext) string {
	rc := renderedContext{
		Query:        dc.Query,
		ContextPages: dc.ContextPages,
	}
	if dc.ParentID != nil {
		rc.IsRecursive = true
		ids := make([]string, len(dc.ParentOffers))
		for i, id := range dc.ParentOffers {
			ids[i] = id.String()
		}
		rc.ParentOffers = ids
	}
	b, err := json.Marshal(rc)
	if err != nil {
		return "{}"
	}
	return string(b)
}

type renderedOffer struct {
	ID          string  `json:"id"`
	SellerKind  string  `json:"seller_kind"`
	PrivateInfo string  `json:"private_info"`
	PublicInfo  string  `json:"public_info"`
	Price       float64 `json:"price"`
}

// renderOffers mirrors llm.py's render_info_offers_private: the full private
// payload of each offer, since the agent acts on the buyer's behalf and is
// trusted with unredacted content before purchase.
func renderOffers(offers []*model.InfoOffer) string {
	out := make([]renderedOffer, len(offers))
	for i, o := range offers {
		out[i] = renderedOffer{
			ID:          o.ID.String(),
			SellerKind:  string(o.SellerKind),
			PrivateInfo: o.PrivateInfo,
			PublicInfo:  o.PublicInfo,
			Price:       o.Price,
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "[]"
	}
	return string(b)
}
