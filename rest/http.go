// Package rest exposes the script and container generators together with the
// SSH-backed cluster job operations over an HTTP API.
package rest

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/justinas/alice"
	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/helper/sshutil"
	"github.com/hpcforge/hpcforge/log"
	"github.com/hpcforge/hpcforge/prov/slurm"
)

type router struct {
	*httprouter.Router
}

func (r *router) Get(path string, handler http.Handler) {
	r.GET(path, wrapHandler(handler))
}

func (r *router) Post(path string, handler http.Handler) {
	r.POST(path, wrapHandler(handler))
}

func (r *router) Delete(path string, handler http.Handler) {
	r.DELETE(path, wrapHandler(handler))
}

type contextKey int8

const paramsLookupKey contextKey = 1

func wrapHandler(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := r.Context()
		h.ServeHTTP(w, r.WithContext(context.WithValue(ctx, paramsLookupKey, ps)))
	}
}

func newRouter() *router {
	return &router{httprouter.New()}
}

// A Server is an HTTP server that runs the hpcforge REST API
type Server struct {
	router     *router
	httpServer *http.Server
	config     config.Configuration
	version    string
	// sshClientFactory is overridable in tests
	sshClientFactory func(config.Configuration) (sshutil.Client, error)
}

// Shutdown stops the HTTP server, waiting for in-flight requests up to the
// configured graceful shutdown timeout
func (s *Server) Shutdown() {
	if s != nil {
		log.Printf("Shutting down http server")
		timeout := s.config.ServerGracefulShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultServerGracefulShutdownTimeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Print(errors.Wrap(err, "Failed to gracefully shutdown http server"))
		}
	}
}

// NewServer create a Server to serve the REST API
func NewServer(configuration config.Configuration, version string) (*Server, error) {
	addr, err := getAddress(configuration)
	if err != nil {
		return nil, err
	}
	listener, err := net.Listen(addr.Network(), addr.String())
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to bind on %s", addr)
	}

	if configuration.SSLEnabled {
		listener, err = wrapListenerTLS(listener, configuration)
		if err != nil {
			return nil, err
		}
	}

	httpServer := &Server{
		router:  newRouter(),
		config:  configuration,
		version: version,
		sshClientFactory: func(cfg config.Configuration) (sshutil.Client, error) {
			return slurm.GetSSHClient(cfg)
		},
	}
	httpServer.httpServer = &http.Server{Handler: httpServer.router}

	httpServer.registerHandlers()
	if configuration.SSLEnabled {
		log.Printf("Starting HTTPServer over TLS on address %s", listener.Addr())
		log.Debugf("TLS KeyFile in use: %q. TLS CertFile in use: %q", configuration.KeyFile, configuration.CertFile)
		if configuration.SSLVerify {
			log.Printf("TLS set to reject any certificate not trusted by CA")
			log.Debugf("TLS CA file in use: %q", configuration.CAFile)
			log.Debugf("TLS CA path in use: %q", configuration.CAPath)
		}
	} else {
		log.Printf("Starting HTTPServer on address %s", listener.Addr())
	}
	go httpServer.httpServer.Serve(listener)

	return httpServer, nil
}

func (s *Server) registerHandlers() {
	commonHandlers := alice.New(telemetryHandler, loggingHandler, recoverHandler)
	jsonHandlers := commonHandlers.Append(contentTypeHandler("application/json"))

	s.router.Post("/scripts", jsonHandlers.ThenFunc(s.generateScriptHandler))
	s.router.Post("/containers/dockerfile", jsonHandlers.ThenFunc(s.generateDockerfileHandler))
	s.router.Post("/containers/apptainer", jsonHandlers.ThenFunc(s.generateApptainerHandler))
	s.router.Post("/containers/workflow", jsonHandlers.ThenFunc(s.generateWorkflowHandler))

	s.router.Post("/jobs", jsonHandlers.ThenFunc(s.submitJobHandler))
	s.router.Get("/jobs", commonHandlers.Append(acceptHandler("application/json")).ThenFunc(s.listJobsHandler))
	s.router.Get("/jobs/:id", commonHandlers.Append(acceptHandler("application/json")).ThenFunc(s.getJobHandler))
	s.router.Get("/jobs/:id/output", commonHandlers.ThenFunc(s.getJobOutputHandler))
	s.router.Delete("/jobs/:id", commonHandlers.ThenFunc(s.cancelJobHandler))

	s.router.Get("/cluster/usage", commonHandlers.Append(acceptHandler("application/json")).ThenFunc(s.getClusterUsageHandler))
	s.router.Get("/server/info", commonHandlers.Append(acceptHandler("application/json")).ThenFunc(s.getServerInfoHandler))
}

func encodeJSONResponse(w http.ResponseWriter, r *http.Request, resp interface{}) {
	jEnc := json.NewEncoder(w)
	if _, ok := r.URL.Query()["pretty"]; ok {
		jEnc.SetIndent("", "  ")
	}
	w.Header().Set("Content-Type", "application/json")
	jEnc.Encode(resp)
}

func getAddress(configuration config.Configuration) (net.Addr, error) {
	var port int
	if configuration.HTTPPort == 0 {
		// Use default value
		port = config.DefaultHTTPPort
	} else if configuration.HTTPPort < 0 {
		// Use random port
		port = 0
	} else {
		port = configuration.HTTPPort
	}
	var ip net.IP
	if configuration.HTTPAddress != "" {
		ip = net.ParseIP(configuration.HTTPAddress)
	} else {
		ip = net.ParseIP(config.DefaultHTTPAddress)
	}
	if ip == nil {
		return nil, errors.Errorf("Failed to parse IP: %v", configuration.HTTPAddress)
	}
	return &net.TCPAddr{IP: ip, Port: port}, nil
}
