// SPDX-License-Identifier: AGPL-3.0-only

package commands

type EnvVarNames struct {
	APIKey      string
	AppKey      string
	Site        string
	Address     string
	TLSCAPath   string
	TLSCertPath string
	TLSKeyPath  string
	LogLevel    string
}

func NewEnvVarsWithPrefix(prefix string) EnvVarNames {
	const (
		apiKey      = "API_KEY"
		appKey      = "APP_KEY"
		site        = "SITE"
		address     = "ADDRESS"
		tlsCAPath   = "TLS_CA_PATH"
		tlsCertPath = "TLS_CERT_PATH"
		tlsKeyPath  = "TLS_KEY_PATH"
		logLevel    = "LOG_LEVEL"
	)

	if len(prefix) > 0 && prefix[len(prefix)-1] != '_' {
		prefix = prefix + "_"
	}

	return EnvVarNames{
		APIKey:      prefix + apiKey,
		AppKey:      prefix + appKey,
		Site:        prefix + site,
		Address:     prefix + address,
		TLSCAPath:   prefix + tlsCAPath,
		TLSCertPath: prefix + tlsCertPath,
		TLSKeyPath:  prefix + tlsKeyPath,
		LogLevel:    prefix + logLevel,
	}
}
