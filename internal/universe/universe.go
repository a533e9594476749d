// Package universe holds the static instrument universe the dashboard
// compares: Japanese energy-related equities grouped into sectors, plus
// the Nikkei 225 index used as the market-wide benchmark overlay.
package universe

// Benchmark is the index symbol overlaid on every comparison chart.
const Benchmark = "^N225"

// BenchmarkName is the display name for the benchmark.
const BenchmarkName = "日経平均"

// Sector groups tickers with their display names. Display names use the
// "code name" convention so charts and tables show both at once.
type Sector struct {
	Name   string
	Stocks []Stock
}

// Stock is one instrument in the universe.
type Stock struct {
	Ticker string
	Name   string
}

var sectors = []Sector{
	{
		Name: "11資源",
		Stocks: []Stock{
			{"5020.T", "5020 ＥＮＥＯＳホールディングス"},
			{"5019.T", "5019 出光興産"},
			{"5021.T", "5021 コスモエネルギーホールディングス"},
			{"1605.T", "1605 ＩＮＰＥＸ"},
			{"1662.T", "1662 石油資源開発"},
			{"8031.T", "8031 三井物産"},
			{"8058.T", "8058 三菱商事"},
			{"8001.T", "8001 伊藤忠商事"},
			{"8002.T", "8002 丸紅"},
			{"8053.T", "8053 住友商事"},
			{"8015.T", "8015 豊田通商"},
			{"2768.T", "2768 双日"},
		},
	},
	{
		Name: "12電力",
		Stocks: []Stock{
			{"9503.T", "9503 関西電力"},
			{"9502.T", "9502 中部電力"},
			{"9508.T", "9508 九州電力"},
			{"9506.T", "9506 東北電力"},
			{"9513.T", "9513 電源開発"},
			{"9507.T", "9507 四国電力"},
			{"9509.T", "9509 北海道電力"},
			{"9501.T", "9501 東京電力ホールディングス"},
			{"9504.T", "9504 中国電力"},
			{"9505.T", "9505 北陸電力"},
			{"9511.T", "9511 沖縄電力"},
		},
	},
	{
		Name: "13ガス",
		Stocks: []Stock{
			{"9531.T", "9531 東京瓦斯"},
			{"9532.T", "9532 大阪瓦斯"},
			{"9533.T", "9533 東邦瓦斯"},
			{"9551.T", "9551 メタウォーター"},
			{"9543.T", "9543 静岡ガス"},
			{"9536.T", "9536 西部ガスホールディングス"},
			{"9534.T", "9534 北海道瓦斯"},
			{"9539.T", "9539 京葉瓦斯"},
			{"9535.T", "9535 広島ガス"},
			{"9537.T", "9537 北陸瓦斯"},
		},
	},
	{
		Name: "14再エネ新電力",
		Stocks: []Stock{
			{"9519.T", "9519 レノバ"},
			{"9517.T", "9517 イーレックス"},
			{"3150.T", "3150 グリムス"},
			{"176A.T", "176A レジル"},
			{"350A.T", "350A デジタルグリッド"},
			{"7692.T", "7692 アースインフィニティ"},
			{"9514.T", "9514 エフオン"},
		},
	},
	{
		Name: "15燃料専門商社",
		Stocks: []Stock{
			{"8088.T", "8088 岩谷産業"},
			{"8020.T", "8020 兼松"},
			{"8078.T", "8078 阪和興業"},
			{"8133.T", "8133 伊藤忠エネクス"},
			{"5007.T", "5007 三愛オブリ"},
			{"3182.T", "3182 ミツウロコグループホールディングス"},
			{"8150.T", "8150 ＴＯＫＡＩホールディングス"},
			{"8084.T", "8084 三谷商事"},
			{"8103.T", "8103 明和産業"},
			{"8146.T", "8146 大丸エナウィン"},
			{"8037.T", "8037 カメイ"},
			{"8085.T", "8085 ナラサキ産業"},
		},
	},
}

// Sectors returns the sector names in display order.
func Sectors() []string {
	out := make([]string, len(sectors))
	for i, s := range sectors {
		out[i] = s.Name
	}
	return out
}

// DefaultSector is the sector pre-selected on first load.
func DefaultSector() string { return sectors[0].Name }

// Tickers returns the ticker codes of a sector in display order, nil for
// an unknown sector.
func Tickers(sector string) []string {
	for _, s := range sectors {
		if s.Name == sector {
			out := make([]string, len(s.Stocks))
			for i, st := range s.Stocks {
				out[i] = st.Ticker
			}
			return out
		}
	}
	return nil
}

// Stocks returns a sector's instruments in display order, nil for an
// unknown sector.
func Stocks(sector string) []Stock {
	for _, s := range sectors {
		if s.Name == sector {
			return append([]Stock(nil), s.Stocks...)
		}
	}
	return nil
}

// DisplayName resolves a ticker code to its display name. The benchmark
// has its own name; unknown tickers fall back to the raw code.
func DisplayName(ticker string) string {
	if ticker == Benchmark {
		return BenchmarkName
	}
	for _, s := range sectors {
		for _, st := range s.Stocks {
			if st.Ticker == ticker {
				return st.Name
			}
		}
	}
	return ticker
}
