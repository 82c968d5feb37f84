package models

// Bar is one kline. OpenTime is the unique key inside a symbol's series.
type Bar struct {
	OpenTime  int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	CloseTime int64
}
