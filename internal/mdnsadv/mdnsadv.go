// Package mdnsadv advertises this receiver on the local network as an
// AirPlay 1 audio target via mDNS/DNS-SD, using the pure-Go dnssd responder
// so no system daemon or CGo dependency is required.
package mdnsadv

import (
	"context"
	"fmt"

	"github.com/brutella/dnssd"
)

const serviceType = "_raop._tcp"

const txtSF = "0x4"
const txtFV = "76400.10"
const txtAM = "Airguitar"
const txtVS = "105.1"
const txtTP = "TCP,UDP"
const txtVN = "65537"
const txtSS = "16"
const txtSR = "44100"
const txtDA = "true"
const txtSV = "false"
const txtET = "0,1"
const txtEK = "1"
const txtCN = "0,1"
const txtCH = "2"
const txtTxtvers = "1"
const txtPW = "true"

// Advertiser owns a single long-lived dnssd responder registration. It
// outlives any one RAOP session: the supervisor starts it once at process
// startup and stops it only at process shutdown.
type Advertiser struct {
	responder dnssd.Responder
}

// InstanceName builds the "{HW}@{name}" instance name, HW being the
// hex-uppercase hardware address with no separators.
func InstanceName(hwAddr [6]byte, name string) string {
	return fmt.Sprintf("%02X%02X%02X%02X%02X%02X@%s",
		hwAddr[0], hwAddr[1], hwAddr[2], hwAddr[3], hwAddr[4], hwAddr[5], name)
}

// New builds a dnssd service and responder for this receiver and adds the
// service to the responder, but does not start responding yet; call
// Respond to do that.
func New(hwAddr [6]byte, name string, port int) (*Advertiser, error) {
	cfg := dnssd.Config{
		Name: InstanceName(hwAddr, name),
		Type: serviceType,
		Port: port,
		Text: map[string]string{
			"sf":      txtSF,
			"fv":      txtFV,
			"am":      txtAM,
			"vs":      txtVS,
			"tp":      txtTP,
			"vn":      txtVN,
			"ss":      txtSS,
			"sr":      txtSR,
			"da":      txtDA,
			"sv":      txtSV,
			"et":      txtET,
			"ek":      txtEK,
			"cn":      txtCN,
			"ch":      txtCH,
			"txtvers": txtTxtvers,
			"pw":      txtPW,
		},
	}

	sv, err := dnssd.NewService(cfg)
	if err != nil {
		return nil, fmt.Errorf("mdnsadv: create service: %w", err)
	}

	rp, err := dnssd.NewResponder()
	if err != nil {
		return nil, fmt.Errorf("mdnsadv: create responder: %w", err)
	}
	if _, err := rp.Add(sv); err != nil {
		return nil, fmt.Errorf("mdnsadv: add service: %w", err)
	}

	return &Advertiser{responder: rp}, nil
}

// Respond blocks, answering mDNS queries until ctx is cancelled. The
// supervisor runs this as one of its top-level watched goroutines, the same
// way it watches the TCP listener and the Player's fatal-error channel.
func (a *Advertiser) Respond(ctx context.Context) error {
	return a.responder.Respond(ctx)
}
