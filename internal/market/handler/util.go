package handler

import "time"

// nowFunc is overridden in tests that need a fixed clock to exercise inbox
// expiry deterministically.
var nowFunc = time.Now
