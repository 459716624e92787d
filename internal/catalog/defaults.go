package catalog

// Defaults are the queries used when the config does not list any.
var Defaults = []Query{
	{
		Label: "Top Gainers",
		Query: "select latest Close - 1 day ago Close / 1 day ago Close * 100 as 'DAILY', latest Close - 1 week ago Close / 1 week ago Close * 100 as 'WEEKLY', latest Close - 1 month ago Close / 1 month ago Close * 100 as 'MONTHLY' WHERE( {cash} ( latest close > 1 day ago close and market cap > 1000 ) ) GROUP BY symbol ORDER BY 1 desc",
		Icon:  "🚀",
	},
	{
		Label: "Top Losers",
		Query: "select ( ( latest Close - 1 day ago Close ) / 1 day ago Close ) * 100 as 'DAILY', ( ( latest Close - 1 week ago Close ) / 1 week ago Close ) * 100 as 'WEEKLY', ( ( latest Close - 1 month ago Close ) / 1 month ago Close ) * 100 as 'MONTHLY' WHERE( {cash} ( latest close < 1 day ago close and market cap > 1000 ) ) GROUP BY symbol ORDER BY 1 asc",
		Icon:  "📉",
	},
	{
		Label: "1 Month Performance",
		Query: "select ( ( latest Close - 30 days ago Close ) / 30 days ago Close ) * 100 as '% change' WHERE( {cash} ( latest close > 20 and market cap > 500 ) ) GROUP BY symbol ORDER BY 1 desc",
		Icon:  "📈",
	},
	{
		Label: "distance from Dma50",
		Query: "select latest Close - latest Sma( latest Close , 50 ) / latest Sma( latest Close , 50 ) * 100 as 'Distance from SMA50' WHERE {45603} 1 = 1 GROUP BY symbol ORDER BY 1 desc",
		Icon:  "📈",
	},
}
