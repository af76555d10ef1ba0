package database

// Validation is one stored seller validation.
type Validation struct {
	ID            int64
	SellerID      string
	Status        string
	Message       string
	CompanyName   *string
	MatchCount    int
	NonMatchCount int
	CategoryScore *float64
	Result        string // full result as JSON
	ValidatedAt   *string
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalCalls        int
	States            int
	Categories        int
	TotalValidations  int
	VerifiedSellers   int
	PartialSellers    int
	UnverifiedSellers int
	FailedValidations int
}
