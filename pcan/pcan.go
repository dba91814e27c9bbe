// Package pcan drives PEAK-System CAN interfaces through the PCAN-Basic
// library.
package pcan

import (
	"github.com/jd3nn1s/enginesim"
	log "github.com/sirupsen/logrus"
	"sort"
	"strings"
	"sync"
)

const dllName = "PCANBasic.dll"

// PCAN-USB interface, channel 1
const USBBus1 enginesim.Channel = 0x51

// BTR0/BTR1 register values
const (
	Baud1M   uint16 = 0x0014
	Baud500K uint16 = 0x001C
	Baud250K uint16 = 0x011C
	Baud125K uint16 = 0x031C
	Baud100K uint16 = 0x432F
	Baud50K  uint16 = 0x472F
	Baud20K  uint16 = 0x532F
	Baud10K  uint16 = 0x672F
)

const (
	ErrorOK           enginesim.Status = 0x00000
	ErrorXmtFull      enginesim.Status = 0x00001
	ErrorOverrun      enginesim.Status = 0x00002
	ErrorBusLight     enginesim.Status = 0x00004
	ErrorBusHeavy     enginesim.Status = 0x00008
	ErrorBusOff       enginesim.Status = 0x00010
	ErrorQRcvEmpty    enginesim.Status = 0x00020
	ErrorQOverrun     enginesim.Status = 0x00040
	ErrorQXmtFull     enginesim.Status = 0x00080
	ErrorRegTest      enginesim.Status = 0x00100
	ErrorNoDriver     enginesim.Status = 0x00200
	ErrorHWInUse      enginesim.Status = 0x00400
	ErrorNetInUse     enginesim.Status = 0x00800
	ErrorIllHW        enginesim.Status = 0x01400
	ErrorIllNet       enginesim.Status = 0x01800
	ErrorIllClient    enginesim.Status = 0x01C00
	ErrorResource     enginesim.Status = 0x02000
	ErrorIllParamType enginesim.Status = 0x04000
	ErrorIllParamVal  enginesim.Status = 0x08000
	ErrorUnknown      enginesim.Status = 0x10000
	ErrorBusPassive   enginesim.Status = 0x40000
	ErrorInitialize   enginesim.Status = 0x4000000
)

var statusTexts = map[enginesim.Status]string{
	ErrorOK:           "no error",
	ErrorXmtFull:      "transmit buffer in CAN controller is full",
	ErrorOverrun:      "CAN controller was read too late",
	ErrorBusLight:     "bus error: an error counter reached the 'light' limit",
	ErrorBusHeavy:     "bus error: an error counter reached the 'heavy' limit",
	ErrorBusOff:       "bus error: the CAN controller is in bus-off state",
	ErrorQRcvEmpty:    "receive queue is empty",
	ErrorQOverrun:     "receive queue was read too late",
	ErrorQXmtFull:     "transmit queue is full",
	ErrorRegTest:      "test of the CAN controller hardware registers failed",
	ErrorNoDriver:     "driver not loaded",
	ErrorHWInUse:      "hardware already in use by a net",
	ErrorNetInUse:     "a client is already connected to the net",
	ErrorIllHW:        "hardware handle is invalid",
	ErrorIllNet:       "net handle is invalid",
	ErrorIllClient:    "client handle is invalid",
	ErrorResource:     "resource (FIFO, client, timeout) cannot be created",
	ErrorIllParamType: "invalid parameter",
	ErrorIllParamVal:  "invalid parameter value",
	ErrorUnknown:      "unknown error",
	ErrorBusPassive:   "bus error: the CAN controller is error passive",
	ErrorInitialize:   "channel is not initialized",
}

// Msg is the TPCANMsg structure handed to CAN_Write.
type Msg struct {
	ID      uint32
	MsgType uint8
	Len     uint8
	Data    [8]byte
}

type driver interface {
	Initialize(channel uint16, btr uint16) uint32
	Write(channel uint16, msg *Msg) uint32
	Uninitialize(channel uint16) uint32
}

// to allow testing
var loadDriver = loadDLL

// BaudRegister returns the BTR0/BTR1 value for a bit rate.
func BaudRegister(baud enginesim.BaudRate) (uint16, bool) {
	switch baud {
	case enginesim.Baud1M:
		return Baud1M, true
	case enginesim.Baud500K:
		return Baud500K, true
	case enginesim.Baud250K:
		return Baud250K, true
	case enginesim.Baud125K:
		return Baud125K, true
	case 100000:
		return Baud100K, true
	case 50000:
		return Baud50K, true
	case 20000:
		return Baud20K, true
	case 10000:
		return Baud10K, true
	}
	return 0, false
}

// Adapter implements enginesim.Adapter on top of PCAN-Basic. The library
// is loaded on first use; every call reports ErrorNoDriver when it cannot
// be loaded.
type Adapter struct {
	once sync.Once
	drv  driver
}

func New() *Adapter {
	return &Adapter{}
}

func (a *Adapter) load() driver {
	a.once.Do(func() {
		drv, err := loadDriver()
		if err != nil {
			log.WithError(err).Error("PCAN-Basic unavailable")
			return
		}
		a.drv = drv
	})
	return a.drv
}

func (a *Adapter) Initialize(ch enginesim.Channel, baud enginesim.BaudRate) enginesim.Status {
	drv := a.load()
	if drv == nil {
		return ErrorNoDriver
	}
	btr, ok := BaudRegister(baud)
	if !ok {
		log.WithField("baudRate", uint32(baud)).Error("unsupported PCAN bit rate")
		return ErrorIllParamVal
	}
	return enginesim.Status(drv.Initialize(uint16(ch), btr))
}

func (a *Adapter) Write(ch enginesim.Channel, f enginesim.Frame) enginesim.Status {
	drv := a.load()
	if drv == nil {
		return ErrorNoDriver
	}
	msg := Msg{
		ID:      f.ID,
		MsgType: f.MessageType(),
		Len:     f.Length,
		Data:    f.Data,
	}
	return enginesim.Status(drv.Write(uint16(ch), &msg))
}

func (a *Adapter) Uninitialize(ch enginesim.Channel) enginesim.Status {
	drv := a.load()
	if drv == nil {
		return ErrorNoDriver
	}
	return enginesim.Status(drv.Uninitialize(uint16(ch)))
}

// StatusText describes a PCAN status. Status values are bit sets, so
// combined codes are described flag by flag.
func (a *Adapter) StatusText(s enginesim.Status) string {
	if text, ok := statusTexts[s]; ok {
		return text
	}
	var codes []enginesim.Status
	for code := range statusTexts {
		if code != ErrorOK && s&code == code {
			codes = append(codes, code)
		}
	}
	// the handle codes overlap, prefer the widest match
	sort.Slice(codes, func(i, j int) bool { return codes[i] > codes[j] })
	var texts []string
	var covered enginesim.Status
	for _, code := range codes {
		if covered&code == code {
			continue
		}
		covered |= code
		texts = append(texts, statusTexts[code])
	}
	if len(texts) == 0 {
		return ""
	}
	return strings.Join(texts, ", ")
}
