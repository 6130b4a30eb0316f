// Package httputil holds the HTTP client used by CLI commands to reach the
// hpcforge REST API.
package httputil

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"strings"

	"github.com/goware/urlx"
	"github.com/hashicorp/go-rootcerts"
	"github.com/pkg/errors"

	"github.com/hpcforge/hpcforge/config"
	"github.com/hpcforge/hpcforge/rest"
)

// APIDefaultErrorMsg is the default communication error message
const APIDefaultErrorMsg = "Failed to contact hpcforge API"

// Client is the hpcforge HTTP client structure
type Client struct {
	*http.Client
	baseURL string
}

// NewRequest returns a new HTTP request
func (c *Client) NewRequest(method, path string, body io.Reader) (*http.Request, error) {
	return http.NewRequest(method, c.baseURL+path, body)
}

// GetClient returns a hpcforge HTTP Client
func GetClient(cc config.Client) (*Client, error) {
	serverAPI := strings.TrimRight(cc.ServerAPI, "/")
	caFile := cc.CAFile
	caPath := cc.CAPath
	certFile := cc.CertFile
	keyFile := cc.KeyFile
	if cc.SSLEnabled || caFile != "" || caPath != "" || (certFile != "" && keyFile != "") {
		url, err := urlx.Parse(serverAPI)
		if err != nil {
			return nil, errors.Wrap(err, "Malformed hpcforge URL")
		}
		serverHost, _, err := urlx.SplitHostPort(url)
		if err != nil {
			return nil, errors.Wrap(err, "Malformed hpcforge URL")
		}

		tlsConfig := &tls.Config{ServerName: serverHost}
		if certFile != "" && keyFile != "" {
			cert, err := tls.LoadX509KeyPair(certFile, keyFile)
			if err != nil {
				return nil, errors.Wrap(err, "Failed to load TLS certificates")
			}
			tlsConfig.Certificates = []tls.Certificate{cert}
		}
		if caFile != "" || caPath != "" {
			cfg := &rootcerts.Config{
				CAFile: caFile,
				CAPath: caPath,
			}
			rootcerts.ConfigureTLS(tlsConfig, cfg)
		}
		if cc.SkipTLSVerify {
			tlsConfig.InsecureSkipVerify = true
			fmt.Println("Warning : usage of skip_tls_verify is not recommended for production and may expose to MITM attack")
		}

		tr := &http.Transport{
			TLSClientConfig: tlsConfig,
		}
		return &Client{
			baseURL: "https://" + serverAPI,
			Client:  &http.Client{Transport: tr},
		}, nil
	}

	return &Client{
		baseURL: "http://" + serverAPI,
		Client:  &http.Client{},
	}, nil
}

type cmdRestError struct {
	errs rest.Errors
}

func (cre cmdRestError) Error() string {
	var buf bytes.Buffer
	if len(cre.errs.Errors) > 0 {
		buf.WriteString("Got errors when interacting with hpcforge:\n")
		for _, e := range cre.errs.Errors {
			buf.WriteString(fmt.Sprintf("Error: %q: %q\n", e.Title, e.Detail))
		}
	}
	return buf.String()
}

// ErrExit allows to exit on error with exit code 1 after printing error message
func ErrExit(msg interface{}) {
	fmt.Println("Error:", msg)
	os.Exit(1)
}

// GetJSONEntity performs a GET request on the given path and decodes the JSON
// response into entity
func GetJSONEntity(client *Client, path string, entity interface{}) error {
	request, err := client.NewRequest("GET", path, nil)
	if err != nil {
		return errors.Wrap(err, APIDefaultErrorMsg)
	}
	request.Header.Add("Accept", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return errors.Wrap(err, APIDefaultErrorMsg)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		// Try to get the reason
		errs := getRestErrors(response.Body)
		err = cmdRestError{errs: errs}
		return errors.Wrapf(err, "Expecting HTTP Status code 2xx got %d, reason %q: ", response.StatusCode, response.Status)
	}

	body, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return errors.Wrap(err, "Failed to read response from hpcforge")
	}
	return errors.Wrap(json.Unmarshal(body, entity), "Fail to parse JSON response from hpcforge")
}

func getRestErrors(body io.Reader) rest.Errors {
	var errs rest.Errors
	bodyContent, _ := ioutil.ReadAll(body)
	json.Unmarshal(bodyContent, &errs)
	return errs
}
