package model

import "encoding/json"

// Subscription is the first frame sent to the aisstream.io websocket
type Subscription struct {
	APIKey             string          `json:"APIKey"`
	BoundingBoxes      [][2][2]float64 `json:"BoundingBoxes"`
	FilterMessageTypes []string        `json:"FilterMessageTypes,omitempty"`
}

// AISEnvelope is an inbound aisstream.io frame
type AISEnvelope struct {
	MessageType string                     `json:"MessageType"`
	MetaData    *AISMetaData               `json:"MetaData"`
	Metadata    *AISMetaData               `json:"Metadata"`
	Message     map[string]json.RawMessage `json:"Message"`
	Error       *string                    `json:"error"`
}

// AISMetaData is the metadata block attached to every aisstream.io message
type AISMetaData struct {
	MMSI      *int64   `json:"MMSI"`
	ShipName  string   `json:"ShipName"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	TimeUTC   string   `json:"time_utc"`
}

// AISPositionReport holds the fields shared by class A and class B position reports
type AISPositionReport struct {
	UserID      *int64   `json:"UserID"`
	Latitude    *float64 `json:"Latitude"`
	Longitude   *float64 `json:"Longitude"`
	Sog         *float64 `json:"Sog"`
	Cog         *float64 `json:"Cog"`
	TrueHeading *float64 `json:"TrueHeading"`
	Valid       *bool    `json:"Valid"`
}
