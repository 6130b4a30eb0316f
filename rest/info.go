package rest

import (
	"net/http"

	"github.com/hpcforge/hpcforge/log"
	"github.com/hpcforge/hpcforge/prov/slurm"
)

func (s *Server) getServerInfoHandler(w http.ResponseWriter, r *http.Request) {
	info := ServerInfo{Version: s.version}
	client, err := s.sshClientFactory(s.config)
	if err == nil {
		version, verr := slurm.GetVersion(client)
		if verr == nil {
			info.ClusterReachable = true
			info.SlurmVersion = version.String()
		} else {
			log.Debugf("Cluster not reachable: %v", verr)
		}
	}
	encodeJSONResponse(w, r, info)
}

func (s *Server) getClusterUsageHandler(w http.ResponseWriter, r *http.Request) {
	client, err := s.sshClientFactory(s.config)
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	usage, err := slurm.GetUsageInfo(client)
	if err != nil {
		writeError(w, r, newBadGatewayError(err))
		return
	}
	encodeJSONResponse(w, r, usage)
}
