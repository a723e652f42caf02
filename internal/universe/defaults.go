package universe

import (
	"github.com/creasty/defaults"
)

// DefaultInstruments is the tracked universe used when no file is given
var DefaultInstruments = []string{
	// Tech (10)
	"AAPL", "MSFT", "GOOGL", "AMZN", "META", "NVDA", "TSLA", "NFLX", "AMD", "INTC",
	// Finance (10)
	"JPM", "BAC", "GS", "MS", "WFC", "C", "BLK", "V", "MA", "AXP",
	// Healthcare (10)
	"JNJ", "UNH", "PFE", "ABBV", "TMO", "MRK", "LLY", "ABT", "DHR", "BMY",
	// Consumer (10)
	"WMT", "PG", "KO", "PEP", "NKE", "COST", "HD", "MCD", "SBUX", "DIS",
	// Energy (5)
	"XOM", "CVX", "COP", "SLB", "EOG",
	// Indices & ETFs (5)
	"SPY", "QQQ", "DIA", "IWM", "VTI",
	// Crypto (2)
	"BTC-USD", "ETH-USD",
}

// Default returns a Config with every default applied and the default universe
func Default() *Config {
	cfg := &Config{}
	// 태그 기본값은 정적이므로 실패하지 않음
	_ = defaults.Set(cfg)
	cfg.Instruments = append([]string(nil), DefaultInstruments...)
	return cfg
}
