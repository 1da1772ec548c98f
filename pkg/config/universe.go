package config

// nifty50 is a static snapshot of the NIFTY 50 constituents on NSE.
var nifty50 = []string{
	"ADANIENT.NS",
	"ADANIPORTS.NS",
	"APOLLOHOSP.NS",
	"ASIANPAINT.NS",
	"AXISBANK.NS",
	"BAJAJ-AUTO.NS",
	"BAJFINANCE.NS",
	"BAJAJFINSV.NS",
	"BHARTIARTL.NS",
	"BPCL.NS",
	"BRITANNIA.NS",
	"CIPLA.NS",
	"COALINDIA.NS",
	"DIVISLAB.NS",
	"DRREDDY.NS",
	"EICHERMOT.NS",
	"GRASIM.NS",
	"HCLTECH.NS",
	"HDFCBANK.NS",
	"HDFCLIFE.NS",
	"HEROMOTOCO.NS",
	"HINDALCO.NS",
	"HINDUNILVR.NS",
	"ICICIBANK.NS",
	"INDUSINDBK.NS",
	"INFY.NS",
	"ITC.NS",
	"JSWSTEEL.NS",
	"KOTAKBANK.NS",
	"LT.NS",
	"M&M.NS",
	"MARUTI.NS",
	"NESTLEIND.NS",
	"NTPC.NS",
	"ONGC.NS",
	"POWERGRID.NS",
	"RELIANCE.NS",
	"SBIN.NS",
	"SUNPHARMA.NS",
	"TATACONSUM.NS",
	"TATAMOTORS.NS",
	"TATASTEEL.NS",
	"TCS.NS",
	"TECHM.NS",
	"TITAN.NS",
	"ULTRACEMCO.NS",
	"UPL.NS",
	"WIPRO.NS",
}

// Nifty50 returns a copy of the default universe.
func Nifty50() []string {
	out := make([]string, len(nifty50))
	copy(out, nifty50)
	return out
}
