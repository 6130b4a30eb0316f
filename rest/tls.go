package rest

import (
	"crypto/tls"
	"crypto/x509"
	"net"

	rootcerts "github.com/hashicorp/go-rootcerts"
	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/config"
)

func wrapListenerTLS(listener net.Listener, cfg config.Configuration) (net.Listener, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to load TLS certificates")
	}
	tlsConf := &tls.Config{
		Certificates: []tls.Certificate{cert},
	}
	if cfg.SSLVerify {
		var caPool *x509.CertPool
		caPool, err = rootcerts.LoadCACerts(&rootcerts.Config{
			CAFile: cfg.CAFile,
			CAPath: cfg.CAPath,
		})
		if err != nil {
			return nil, errors.Wrap(err, "Failed to load TLS CA certificates")
		}
		tlsConf.ClientCAs = caPool
		tlsConf.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tls.NewListener(listener, tlsConf), nil
}
