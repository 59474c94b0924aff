package catalog

// Default returns the built-in catalog for the site's data directory.
func Default() *Catalog {
	return &Catalog{Datasets: []Dataset{
		{
			Name:       "engagement",
			Title:      "X engagement",
			Location:   "account_overview_analytics_yd.csv",
			Format:     FormatCSV,
			DateColumn: "Date",
			Duplicates: "first",
			Metrics: []Metric{
				{Name: "impressions", Column: "Impressions", Missing: "zero"},
				{Name: "likes", Column: "Likes", Missing: "zero"},
				{Name: "engagements", Column: "Engagements", Missing: "zero"},
				{Name: "replies", Column: "Replies", Missing: "zero"},
				{Name: "reposts", Column: "Reposts", Missing: "zero"},
				{Name: "profileVisits", Column: "Profile visits", Missing: "zero"},
				{Name: "newFollows", Column: "New follows", Missing: "zero"},
			},
		},
		{
			Name:       "transactions",
			Title:      "Solscan transactions per day",
			Location:   "solscan_transactions.csv",
			Format:     FormatCSV,
			DateColumn: "Time",
			Duplicates: "sum",
			Metrics:    []Metric{{Name: "txCount"}},
		},
		{
			Name:       "price",
			Title:      "PhiCoin price",
			Location:   "simplified-prices.csv",
			Format:     FormatCSV,
			DateColumn: "date",
			Duplicates: "last",
			Metrics:    []Metric{{Name: "phicoin", Column: "phicoin", Missing: "positive"}},
		},
		{
			Name:       "btc-dominance",
			Title:      "Bitcoin dominance",
			Location:   "cmc_btc_d.json",
			Format:     FormatJSON,
			DateColumn: "timestamp",
			Duplicates: "last",
			Metrics:    []Metric{{Name: "dominance", Column: "dominance", Missing: "reject", Extract: ExtractIndex0}},
		},
		{
			Name:       "altcoin-index",
			Title:      "Altcoin season index",
			Location:   "cmc_alt_index.json",
			Format:     FormatJSON,
			DateColumn: "timestamp",
			Duplicates: "last",
			Metrics:    []Metric{{Name: "altcoinIndex", Column: "altcoinIndex", Missing: "reject", Extract: ExtractScalar}},
		},
	}}
}
