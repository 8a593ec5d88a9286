package models

// Wire protocol for the realtime channel. Every inbound frame carries a
// type discriminator and the sender's declared role; payload fields vary
// per type and are decoded a second time once the type is known.

const (
	RoleDriver    = "driver"
	RoleRequester = "requester"
)

const (
	MsgLocationUpdate     = "locationUpdate"
	MsgRequestRide        = "requestRide"
	MsgGetDriverLocation  = "getDriverLocation"
	MsgNearbyDrivers      = "nearbyDrivers"
	MsgDriverLiveLocation = "driverLiveLocationWithId"
)

// Envelope is the first-pass decode of any inbound frame.
type Envelope struct {
	Type string `json:"type"`
	Role string `json:"role"`
}

// LocationUpdate: {type, role:"driver", driver, data:{latitude,longitude}}
type LocationUpdate struct {
	Driver string `json:"driver"`
	Data   Coord  `json:"data"`
}

// RideQuery: {type:"requestRide", role:"requester", latitude, longitude}
type RideQuery struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// DriverLocationQuery: {type:"getDriverLocation", role:"requester", driverId}
type DriverLocationQuery struct {
	DriverID string `json:"driverId"`
}

// NearbyDriver is one candidate in a nearbyDrivers reply: flat id and
// coordinates, nothing else crosses the wire.
type NearbyDriver struct {
	ID  string  `json:"id"`
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// NearbyDriversReply answers a requestRide over the same channel.
type NearbyDriversReply struct {
	Type    string         `json:"type"`
	Drivers []NearbyDriver `json:"drivers"`
}

// DriverLiveLocationReply answers a getDriverLocation. Location is nil when
// the driver has no registry entry (disconnected or never reported).
type DriverLiveLocationReply struct {
	Type     string `json:"type"`
	DriverID string `json:"driverId"`
	Location *Coord `json:"location"`
}
