package config

import "github.com/alecthomas/kong"

type Cli struct {
	Version kong.VersionFlag

	LogLevel   string `kong:"name=log-level,env=LOG_LEVEL,default=info,help='Set log level.'"`
	LogJSON    bool   `kong:"name=log-json,env=LOG_JSON,default=false,help='Enable JSON logging output.'"`
	LogCaller  bool   `kong:"name=log-caller,env=LOG_CALLER,default=false,help='Add file:line of the caller to log output.'"`
	LogNoColor bool   `kong:"name=log-nocolor,env=LOG_NOCOLOR,default=false,help='Disable colorized output.'"`

	MaxSize      string `kong:"name=max-size,env=XLFS_MAX_SIZE,default=100MiB,help='Maximum archive size, 0 to disable. (eg. 100MiB)'"`
	MaxEntrySize string `kong:"name=max-entry-size,env=XLFS_MAX_ENTRY_SIZE,default=0,help='Maximum decompressed size of a single entry, 0 to disable. (eg. 512MiB)'"`
	NameEncoding string `kong:"name=name-encoding,help='IANA encoding of entry names not flagged as UTF-8. (eg. IBM437, Shift_JIS)'"`

	Includes []string `kong:"name=include,help='Load this exact path from the archive.'"`
	Globs    []string `kong:"name=glob,help='Load paths matching this glob pattern from the archive. (eg. xl/worksheets/*.xml)'"`
	DryRun   bool     `kong:"name=dry-run,default=false,help='Only check the archive, do not load any entry.'"`

	List   []string `kong:"name=list,help='List files directly under this directory. (default: root)'"`
	Digest bool     `kong:"name=digest,default=false,help='Print the digest of listed files.'"`

	Strings  string `kong:"name=strings,default='xl/sharedStrings.xml',help='Shared strings entry used by --search.'"`
	Search   string `kong:"name=search,help='Fuzzy search the shared strings.'"`
	MinScore int    `kong:"name=min-score,default=0,help='Minimum fuzzy score of a search hit.'"`

	Archives []string `kong:"arg,required,name=archive,type=existingfile,help='Archive to load. (eg. ./book.xlsx)'"`
}
