package repository

// MarketType distinguishes instrument classes served by the data layout.
type MarketType string

const (
	MarketFutures  MarketType = "Futures"
	MarketEquities MarketType = "Equities"
)

// futuresProducts lists the base symbols traded as front-month futures in the
// venue feed. Anything else is treated as an equity symbol.
var futuresProducts = map[string]struct{}{
	"NQ": {},
	"ES": {},
	"YM": {},
	"GC": {},
}

// MarketTypeOf classifies a base symbol by product family.
func MarketTypeOf(symbol string) MarketType {
	if _, ok := futuresProducts[symbol]; ok {
		return MarketFutures
	}
	return MarketEquities
}
