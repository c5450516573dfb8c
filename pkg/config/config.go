package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config holds everything dwhctl needs for a single invocation: AWS
// credentials, the cluster parameters, and the S3/IAM values that get
// interpolated into the ETL statement catalog. It is built once from the
// config file and passed to components; nothing reads the file after Load.
type Config struct {
	AWSKey    string
	AWSSecret string
	Region    string

	ClusterType        string
	NodeType           string
	NumNodes           int64
	ClusterIdentifier  string
	DBName             string
	MasterUsername     string
	MasterUserPassword string
	RoleName           string

	LogData     string
	LogJSONPath string
	SongData    string
	RoleARN     string
}

// Load parses the warehouse config file at path. Every key is required;
// a missing section or key is an error.
func Load(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %v", path, err)
	}

	var cfg Config
	fields := []struct {
		section, key string
		dest         *string
	}{
		{"AWS", "KEY", &cfg.AWSKey},
		{"AWS", "SECRET", &cfg.AWSSecret},
		{"DWH", "DWH_REGION", &cfg.Region},
		{"DWH", "DWH_CLUSTER_TYPE", &cfg.ClusterType},
		{"DWH", "DWH_NODE_TYPE", &cfg.NodeType},
		{"DWH", "DWH_CLUSTER_IDENTIFIER", &cfg.ClusterIdentifier},
		{"DWH", "DWH_DB", &cfg.DBName},
		{"DWH", "DWH_DB_USER", &cfg.MasterUsername},
		{"DWH", "DWH_DB_PASSWORD", &cfg.MasterUserPassword},
		{"DWH", "DWH_IAM_ROLE_NAME", &cfg.RoleName},
		{"S3", "LOG_DATA", &cfg.LogData},
		{"S3", "LOG_JSONPATH", &cfg.LogJSONPath},
		{"S3", "SONG_DATA", &cfg.SongData},
		{"IAM_ROLE", "ARN", &cfg.RoleARN},
	}
	for _, f := range fields {
		val, err := get(file, f.section, f.key)
		if err != nil {
			return nil, err
		}
		*f.dest = val
	}

	numNodes, err := file.Section("DWH").GetKey("DWH_NUM_NODES")
	if err != nil {
		return nil, fmt.Errorf("config file %s: missing key DWH.DWH_NUM_NODES", path)
	}
	cfg.NumNodes, err = numNodes.Int64()
	if err != nil {
		return nil, fmt.Errorf("config file %s: DWH.DWH_NUM_NODES must be an integer: %v", path, err)
	}
	if cfg.NumNodes <= 0 {
		return nil, fmt.Errorf("config file %s: DWH.DWH_NUM_NODES must be positive, got %d", path, cfg.NumNodes)
	}

	return &cfg, nil
}

func get(file *ini.File, section, key string) (string, error) {
	k, err := file.Section(section).GetKey(key)
	if err != nil {
		return "", fmt.Errorf("config file: missing key %s.%s", section, key)
	}
	if k.String() == "" {
		return "", fmt.Errorf("config file: key %s.%s is empty", section, key)
	}
	return k.String(), nil
}
