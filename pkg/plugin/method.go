package plugin

import "fmt"

// Method enumerates the call names the host routes.
type Method int

const (
	CreateClient Method = iota
	DestroyClient
	SetLogLevel
	GetLogLevel
	CancelTransaction
	GetState
	StartDeviceScan
	StopDeviceScan
	RequestMTUForDevice
	ReadRSSIForDevice
	ConnectToDevice
	CancelDeviceConnection
	IsDeviceConnected
	DiscoverAllServicesAndCharacteristicsForDevice
	ServicesForDevice
	CharacteristicsForDevice
	CharacteristicsForService
	WriteCharacteristicForDevice
	WriteCharacteristicForService
	WriteCharacteristic
	ReadCharacteristicForDevice
	ReadCharacteristicForService
	ReadCharacteristic
	MonitorCharacteristicForDevice
	MonitorCharacteristicForService
	MonitorCharacteristic
)

var methodNames = [...]string{
	CreateClient:           "createClient",
	DestroyClient:          "destroyClient",
	SetLogLevel:            "setLogLevel",
	GetLogLevel:            "logLevel",
	CancelTransaction:      "cancelTransaction",
	GetState:               "state",
	StartDeviceScan:        "startDeviceScan",
	StopDeviceScan:         "stopDeviceScan",
	RequestMTUForDevice:    "requestMTUForDevice",
	ReadRSSIForDevice:      "readRSSIForDevice",
	ConnectToDevice:        "connectToDevice",
	CancelDeviceConnection: "cancelDeviceConnection",
	IsDeviceConnected:      "isDeviceConnected",
	DiscoverAllServicesAndCharacteristicsForDevice: "discoverAllServicesAndCharacteristicsForDevice",
	ServicesForDevice:               "servicesForDevice",
	CharacteristicsForDevice:        "characteristicsForDevice",
	CharacteristicsForService:       "characteristicsForService",
	WriteCharacteristicForDevice:    "writeCharacteristicForDevice",
	WriteCharacteristicForService:   "writeCharacteristicForService",
	WriteCharacteristic:             "writeCharacteristic",
	ReadCharacteristicForDevice:     "readCharacteristicForDevice",
	ReadCharacteristicForService:    "readCharacteristicForService",
	ReadCharacteristic:              "readCharacteristic",
	MonitorCharacteristicForDevice:  "monitorCharacteristicForDevice",
	MonitorCharacteristicForService: "monitorCharacteristicForService",
	MonitorCharacteristic:           "monitorCharacteristic",
}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod maps a call name to its Method.
func ParseMethod(name string) (Method, bool) {
	for i, n := range methodNames {
		if n == name {
			return Method(i), true
		}
	}
	return 0, false
}

// Methods returns every routed method in declaration order.
func Methods() []Method {
	out := make([]Method, len(methodNames))
	for i := range methodNames {
		out[i] = Method(i)
	}
	return out
}
