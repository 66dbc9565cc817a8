/*
Package config builds the single Config value that locates the stores.

	            +-------------+
	            |   Default   |  $HOME, hostname
	            +------+------+
	                   |
	            +------+------+
	            |    File     |  ~/.files/config.{hcl,yaml,yml,json,toml}
	            +------+------+        or --config <path>
	                   |
	     +------+------+------+------+
	     |      |             |      |
	   HCL    YAML          JSON   TOML
	     |      |             |      |
	     +------+------+------+------+
	                   |
	            +------+------+
	            |  Validate   |
	            +-------------+

🎯 Purpose:
- One explicit configuration struct, built at startup and passed down
- No package level store locations

🔄 Flow:
1. Default fills every field from the environment
2. Find looks for a config file in the files dir unless one is given
3. The parser registered for the file's extension decodes it into a File,
   rejecting unknown fields
4. File.Apply overlays the set fields
5. Validate rejects unusable names, types, globs and limits

📝 Layout derived from a Config:

	~/.files/
	├── config.hcl
	├── state.json
	└── store/
	    ├── master/   common store
	    └── local/    shadow store

Example HCL:

	machine     = "laptop"
	concurrency = 4
	timeout     = "2m"
	ignore      = ["*.swp", ".cache/**"]
	log_file    = "${env.HOME}/.files/mf.log"
*/
package config
