package domain

// Instrument is one row of the reference instrument table.
type Instrument struct {
	Symbol        string `json:"symbol"`
	SecurityName  string `json:"security_name"`
	GICSSector    string `json:"gics_sector,omitempty"`
	GICSSubSector string `json:"gics_sub_sector,omitempty"`
	MarketIndex   string `json:"market_index,omitempty"`
}
