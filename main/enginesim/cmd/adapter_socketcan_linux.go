package cmd

import (
	"github.com/jd3nn1s/enginesim"
	"github.com/jd3nn1s/enginesim/socketcan"
)

func init() {
	if err := registerAdapter(&adapterInfo{
		Name:        "socketcan",
		Description: "Linux SocketCAN network interface",
		New: func(cfg *enginesim.Config) (enginesim.Adapter, error) {
			return socketcan.New(cfg.Adapter.Interface, cfg.Adapter.OpenAttempts), nil
		},
	}); err != nil {
		panic(err)
	}
}
