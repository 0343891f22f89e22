// Package main builds the shim's J2534 Pass-Thru export surface as a
// c-shared library: the classic PassThruOpen/PassThruConnect/
// PassThruReadMsgs/... C function names, backed by the ISO15765 channel
// decorator wrapping an in-memory ptmock transport.
package main

/*
#include <stdint.h>
#include <string.h>
#include <stdlib.h>

#define PT_MAX_DATA 4128

typedef struct {
    uint32_t ProtocolID;
    uint32_t RxStatus;
    uint32_t TxFlags;
    uint32_t Timestamp;
    uint32_t DataSize;
    uint32_t ExtraDataIndex;
    uint8_t  Data[PT_MAX_DATA];
} PASSTHRU_MSG;

typedef struct {
    uint32_t Parameter;
    uint32_t Value;
} SCONFIG;
*/
import "C"

import (
	"sync"
	"unsafe"

	"github.com/gocanist/iso15765shim/iso15765"
	"github.com/gocanist/iso15765shim/passthru"
	"github.com/gocanist/iso15765shim/ptlog"
	"github.com/gocanist/iso15765shim/ptmock"
)

const (
	statusNoError     C.int32_t = 0
	statusErrNotFound C.int32_t = 1
	statusErrGeneric  C.int32_t = 9
)

var (
	mu       sync.Mutex
	lib      *iso15765.Library
	logger   *ptlog.Logger
	devices         = map[uint32]passthru.Device{}
	channels        = map[uint32]passthru.Channel{}
	channelToDevice = map[uint32]uint32{}
	filters         = map[uint32]passthru.MsgFilter{}
	nextID          uint32
	lastErr  string
)

func allocID() uint32 {
	nextID++
	return nextID
}

func toMessage(c *C.PASSTHRU_MSG) passthru.Message {
	var m passthru.Message
	m.ProtocolID = uint32(c.ProtocolID)
	m.RxStatus = uint32(c.RxStatus)
	m.TxFlags = uint32(c.TxFlags)
	m.Timestamp = uint32(c.Timestamp)
	m.DataSize = uint32(c.DataSize)
	m.ExtraDataIndex = uint32(c.ExtraDataIndex)
	n := m.DataSize
	if n > passthru.MaxDataSize {
		n = passthru.MaxDataSize
	}
	for i := uint32(0); i < n; i++ {
		m.Data[i] = byte(c.Data[i])
	}
	return m
}

func fromMessage(m *passthru.Message, c *C.PASSTHRU_MSG) {
	c.ProtocolID = C.uint32_t(m.ProtocolID)
	c.RxStatus = C.uint32_t(m.RxStatus)
	c.TxFlags = C.uint32_t(m.TxFlags)
	c.Timestamp = C.uint32_t(m.Timestamp)
	c.DataSize = C.uint32_t(m.DataSize)
	c.ExtraDataIndex = C.uint32_t(m.ExtraDataIndex)
	n := m.DataSize
	if n > passthru.MaxDataSize {
		n = passthru.MaxDataSize
	}
	for i := uint32(0); i < n; i++ {
		c.Data[i] = C.uint8_t(m.Data[i])
	}
}

func fail(err error) C.int32_t {
	mu.Lock()
	lastErr = err.Error()
	mu.Unlock()
	return statusErrGeneric
}

//export PassThruOpen
func PassThruOpen(name *C.char, pDeviceID *C.uint32_t) C.int32_t {
	mu.Lock()
	if lib == nil {
		l, err := ptlog.New(".", "ptdll")
		if err == nil {
			logger = l
		}
		lib = iso15765.NewLibrary(ptmock.NewLibrary(), logger)
	}
	mu.Unlock()

	dev, err := lib.Open(C.GoString(name))
	if err != nil {
		return fail(err)
	}

	mu.Lock()
	id := allocID()
	devices[id] = dev
	mu.Unlock()
	*pDeviceID = C.uint32_t(id)
	return statusNoError
}

//export PassThruClose
func PassThruClose(deviceID C.uint32_t) C.int32_t {
	mu.Lock()
	dev, ok := devices[uint32(deviceID)]
	delete(devices, uint32(deviceID))
	mu.Unlock()
	if !ok {
		return statusErrNotFound
	}
	if err := lib.Close(dev); err != nil {
		return fail(err)
	}
	return statusNoError
}

//export PassThruSetProgrammingVoltage
func PassThruSetProgrammingVoltage(deviceID, pin, voltage C.uint32_t) C.int32_t {
	mu.Lock()
	dev, ok := devices[uint32(deviceID)]
	mu.Unlock()
	if !ok {
		return statusErrNotFound
	}
	if err := dev.SetProgrammingVoltage(uint32(pin), uint32(voltage)); err != nil {
		return fail(err)
	}
	return statusNoError
}

//export PassThruReadVersion
func PassThruReadVersion(deviceID C.uint32_t, firmware, dll, api *C.char, bufLen C.uint32_t) C.int32_t {
	mu.Lock()
	dev, ok := devices[uint32(deviceID)]
	mu.Unlock()
	if !ok {
		return statusErrNotFound
	}
	fw, dllVer, apiVer, err := dev.ReadVersion()
	if err != nil {
		return fail(err)
	}
	copyCString(firmware, fw, bufLen)
	copyCString(dll, dllVer, bufLen)
	copyCString(api, apiVer, bufLen)
	return statusNoError
}

func copyCString(dst *C.char, src string, bufLen C.uint32_t) {
	if dst == nil || bufLen == 0 {
		return
	}
	csrc := C.CString(src)
	defer C.free(unsafe.Pointer(csrc))
	C.strncpy(dst, csrc, C.size_t(bufLen)-1)
}

//export PassThruConnect
func PassThruConnect(deviceID, protocolID, flags, baudRate C.uint32_t, pChannelID *C.uint32_t) C.int32_t {
	mu.Lock()
	dev, ok := devices[uint32(deviceID)]
	mu.Unlock()
	if !ok {
		return statusErrNotFound
	}

	ch, err := dev.Connect(passthru.ProtocolID(protocolID), uint32(flags), uint32(baudRate))
	if err != nil {
		return fail(err)
	}

	mu.Lock()
	id := allocID()
	channels[id] = ch
	channelToDevice[id] = uint32(deviceID)
	mu.Unlock()
	*pChannelID = C.uint32_t(id)
	return statusNoError
}

//export PassThruDisconnect
func PassThruDisconnect(channelID C.uint32_t) C.int32_t {
	mu.Lock()
	ch, ok := channels[uint32(channelID)]
	dev, devOk := devices[channelToDevice[uint32(channelID)]]
	delete(channels, uint32(channelID))
	delete(channelToDevice, uint32(channelID))
	mu.Unlock()
	if !ok || !devOk {
		return statusErrNotFound
	}
	if err := dev.Disconnect(ch); err != nil {
		return fail(err)
	}
	return statusNoError
}

//export PassThruReadMsgs
func PassThruReadMsgs(channelID C.uint32_t, pMsgs *C.PASSTHRU_MSG, pNumMsgs *C.uint32_t, timeout C.uint32_t) C.int32_t {
	mu.Lock()
	ch, ok := channels[uint32(channelID)]
	mu.Unlock()
	if !ok {
		return statusErrNotFound
	}

	requested := int(*pNumMsgs)
	msgs := make([]passthru.Message, requested)
	n, err := ch.ReadMsgs(msgs, uint32(timeout))
	*pNumMsgs = C.uint32_t(n)
	if n > 0 {
		cSlice := unsafe.Slice(pMsgs, requested)
		for i := 0; i < n; i++ {
			fromMessage(&msgs[i], &cSlice[i])
		}
	}
	if err != nil {
		return fail(err)
	}
	return statusNoError
}

//export PassThruWriteMsgs
func PassThruWriteMsgs(channelID C.uint32_t, pMsgs *C.PASSTHRU_MSG, pNumMsgs *C.uint32_t, timeout C.uint32_t) C.int32_t {
	mu.Lock()
	ch, ok := channels[uint32(channelID)]
	mu.Unlock()
	if !ok {
		return statusErrNotFound
	}

	requested := int(*pNumMsgs)
	cSlice := unsafe.Slice(pMsgs, requested)
	msgs := make([]passthru.Message, requested)
	for i := 0; i < requested; i++ {
		msgs[i] = toMessage(&cSlice[i])
	}

	n, err := ch.WriteMsgs(msgs, uint32(timeout))
	*pNumMsgs = C.uint32_t(n)
	if err != nil {
		return fail(err)
	}
	return statusNoError
}

//export PassThruStartMsgFilter
func PassThruStartMsgFilter(channelID C.uint32_t, filterType C.uint32_t, pMaskMsg, pPatternMsg, pFlowControlMsg *C.PASSTHRU_MSG, pFilterID *C.uint32_t) C.int32_t {
	mu.Lock()
	ch, ok := channels[uint32(channelID)]
	mu.Unlock()
	if !ok {
		return statusErrNotFound
	}

	var mask, pattern, flow *passthru.Message
	if pMaskMsg != nil {
		m := toMessage(pMaskMsg)
		mask = &m
	}
	if pPatternMsg != nil {
		p := toMessage(pPatternMsg)
		pattern = &p
	}
	if pFlowControlMsg != nil {
		f := toMessage(pFlowControlMsg)
		flow = &f
	}

	handle, err := ch.StartMsgFilter(passthru.FilterType(filterType), mask, pattern, flow)
	if err != nil {
		return fail(err)
	}

	mu.Lock()
	id := allocID()
	filters[id] = handle
	mu.Unlock()
	*pFilterID = C.uint32_t(id)
	return statusNoError
}

//export PassThruStopMsgFilter
func PassThruStopMsgFilter(channelID, filterID C.uint32_t) C.int32_t {
	mu.Lock()
	ch, chOk := channels[uint32(channelID)]
	handle, fOk := filters[uint32(filterID)]
	delete(filters, uint32(filterID))
	mu.Unlock()
	if !chOk || !fOk {
		return statusErrNotFound
	}
	if err := ch.StopMsgFilter(handle); err != nil {
		return fail(err)
	}
	return statusNoError
}

//export PassThruIoctl
func PassThruIoctl(channelID C.uint32_t, ioctlID C.uint32_t, pInput, pOutput *C.SCONFIG, numParams C.uint32_t) C.int32_t {
	mu.Lock()
	ch, ok := channels[uint32(channelID)]
	mu.Unlock()
	if !ok {
		return statusErrNotFound
	}

	n := int(numParams)
	params := make([]passthru.SConfig, n)
	if pInput != nil {
		in := unsafe.Slice(pInput, n)
		for i := 0; i < n; i++ {
			params[i] = passthru.SConfig{Parameter: passthru.ConfigParamID(in[i].Parameter), Value: uint32(in[i].Value)}
		}
	}

	var err error
	switch passthru.IoctlID(ioctlID) {
	case passthru.IoctlGetConfig:
		err = ch.GetConfig(params)
	case passthru.IoctlSetConfig:
		err = ch.SetConfig(params)
	case passthru.IoctlClearTxBuffers:
		err = ch.ClearTxBuffers()
	case passthru.IoctlClearRxBuffers:
		err = ch.ClearRxBuffers()
	case passthru.IoctlClearPeriodicMsgs:
		err = ch.ClearPeriodicMsgs()
	case passthru.IoctlClearMsgFilters:
		err = ch.ClearMsgFilters()
	default:
		err = ch.Ioctl(passthru.IoctlID(ioctlID), nil, nil)
	}
	if err != nil {
		return fail(err)
	}

	if pOutput != nil {
		out := unsafe.Slice(pOutput, n)
		for i := 0; i < n; i++ {
			out[i].Parameter = C.uint32_t(params[i].Parameter)
			out[i].Value = C.uint32_t(params[i].Value)
		}
	}
	return statusNoError
}

//export PassThruGetLastError
func PassThruGetLastError(pErrorMsg *C.char, maxLen C.uint32_t) C.int32_t {
	mu.Lock()
	msg := lastErr
	mu.Unlock()
	copyCString(pErrorMsg, msg, maxLen)
	return statusNoError
}

func main() {}
