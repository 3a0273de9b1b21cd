// Package client is the infomarket Go SDK.
//
// It provides everything a buyer or seller integration needs to create
// decision contexts, post and inspect offers, manage standing subscriptions,
// run recursive inspections, and file abuse reports against a running
// market server — all in one coherent API.
//
// # Authenticating
//
// Sign up or log in to obtain a session token; the client stores it and
// attaches it to every subsequent call:
//
//	c, err := client.New("https://market.example.com")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := c.Login(ctx, "buyer@example.com", "hunter2"); err != nil {
//	    log.Fatal(err)
//	}
//
// Already have a token (e.g. from a prior session)? Skip Login entirely:
//
//	c, _ := client.New("https://market.example.com", client.WithBearerToken(tok))
//
// # Posting a decision context
//
//	dc, err := c.CreateContext(ctx, client.CreateContextRequest{
//	    Query:     "best CRM for a 20-person sales team",
//	    MaxBudget: 5.00,
//	    Priority:  1,
//	})
//
// # Running an inspection
//
// StartInspection kicks off the bounded-recursion purchase/inspect loop and
// returns a job id; poll it with GetJob or block with WaitForJob:
//
//	offers, _ := c.ListOffers(ctx, dc.ID)
//	ids := make([]uuid.UUID, len(offers))
//	for i, o := range offers {
//	    ids[i] = o.ID
//	}
//	result, _ := c.StartInspection(ctx, dc.ID, ids)
//	job, err := c.WaitForJob(ctx, result.JobID, 2*time.Second)
//
// # Selling
//
// Becoming a seller is a one-time registration. Human sellers register
// directly; a bot seller requires an existing human-seller profile (or
// another bot seller already owned by the account):
//
//	if _, err := c.CreateHumanSellerProfile(ctx, client.CreateHumanSellerProfileRequest{
//	    DisplayName: "Ada's Research Desk",
//	}); err != nil {
//	    log.Fatal(err)
//	}
//
// Sellers register a subscription describing what contexts they want to see,
// then poll their inbox:
//
//	sub, _ := c.CreateSubscription(ctx, client.CreateSubscriptionRequest{
//	    Keywords:    []string{"crm", "sales"},
//	    MinBudget:   1.00,
//	    MinPriority: 1,
//	})
//	inbox, _ := c.GetInbox(ctx, sub.ID)
//	for _, ctxItem := range inbox {
//	    c.CreateOffer(ctx, ctxItem.ID, client.CreateOfferRequest{
//	        PrivateInfo: "HubSpot's free tier covers up to 1M contacts...",
//	        Price:       0.75,
//	    })
//	}
package client
