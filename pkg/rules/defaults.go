package rules

import (
	"sync"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

var (
	defaultDB   *Database
	defaultOnce sync.Once
)

//DefaultDatabase returns the built-in rule database. It is built once and shared.
func DefaultDatabase() *Database {
	defaultOnce.Do(func() {
		rules := make([]*Rule, 0, len(builtinRules))
		for _, def := range builtinRules {
			rules = append(rules, MustCompile(def))
		}
		db, err := NewDatabase(rules...)
		if err != nil {
			panic(err)
		}
		defaultDB = db
	})
	return defaultDB
}

//BuiltinDefinitions returns a copy of the built-in rule definitions
func BuiltinDefinitions() []Definition {
	out := make([]Definition, len(builtinRules))
	copy(out, builtinRules)
	return out
}

const (
	critical = string(diagnostics.Critical)
	high     = string(diagnostics.High)
	medium   = string(diagnostics.Medium)
	low      = string(diagnostics.Low)
)

var builtinRules = []Definition{
	// malicious_known
	{
		ID:       "malicious-reverse-shell",
		Pattern:  "reverse shell",
		Literal:  true,
		Category: string(diagnostics.MaliciousKnown),
		Severity: critical,
		Message:  "Reference to a reverse shell: {match}",
	},
	{
		ID:       "malicious-dev-tcp",
		Pattern:  `/dev/(tcp|udp)/[0-9A-Za-z.\-]+/\d+`,
		Category: string(diagnostics.MaliciousKnown),
		Severity: critical,
		Message:  "Shell redirection to a raw network socket: {match}",
	},
	{
		ID:       "malicious-netcat-exec",
		Pattern:  `\b(nc|ncat|netcat)\b[^\n]*\s-[ec]\s`,
		Category: string(diagnostics.MaliciousKnown),
		Severity: critical,
		Message:  "Netcat spawning a program on a connection: {match}",
	},
	{
		ID:       "malicious-known-tooling",
		Pattern:  `(?i)\b(meterpreter|mimikatz|cobalt\s?strike|njrat|darkcomet|quasar\s?rat)\b`,
		Category: string(diagnostics.MaliciousKnown),
		Severity: critical,
		Message:  "Known offensive tooling referenced: {match}",
	},
	{
		ID:       "malicious-keylogger",
		Pattern:  "keylogger",
		Literal:  true,
		Category: string(diagnostics.MaliciousKnown),
		Severity: high,
		Message:  "Keylogger referenced: {match}",
	},

	// credential_access
	{
		ID:       "credential-openai-key",
		Pattern:  `\bsk-(proj-|ant-)?[A-Za-z0-9_\-]{16,}`,
		Category: string(diagnostics.CredentialAccess),
		Severity: critical,
		Message:  "Hard-coded API secret key: {match}",
	},
	{
		ID:       "credential-aws-access-key",
		Pattern:  `\b(AKIA|ASIA)[0-9A-Z]{16}\b`,
		Category: string(diagnostics.CredentialAccess),
		Severity: critical,
		Message:  "Hard-coded AWS access key: {match}",
	},
	{
		ID:       "credential-private-key",
		Pattern:  `-----BEGIN ((RSA|EC|DSA|OPENSSH|PGP|ENCRYPTED) )?PRIVATE KEY( BLOCK)?-----`,
		Category: string(diagnostics.CredentialAccess),
		Severity: critical,
		Message:  "Embedded private key: {match}",
	},
	{
		ID:       "credential-github-token",
		Pattern:  `\b(gh[pousr]_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{40,})`,
		Category: string(diagnostics.CredentialAccess),
		Severity: critical,
		Message:  "Hard-coded GitHub token: {match}",
	},
	{
		ID:       "credential-slack-token",
		Pattern:  `\bxox[abprs]-[A-Za-z0-9\-]{10,}`,
		Category: string(diagnostics.CredentialAccess),
		Severity: critical,
		Message:  "Hard-coded Slack token: {match}",
	},
	{
		ID:       "credential-generic-assignment",
		Pattern:  `(?i)\b(api[_\-]?key|secret[_\-]?key|access[_\-]?token|auth[_\-]?token|passw(or)?d)\s*[:=]\s*['"][^'"\s]{12,}['"]`,
		Category: string(diagnostics.CredentialAccess),
		Severity: high,
		Message:  "Possible hard-coded secret: {match}",
	},
	{
		ID:       "credential-secret-assignment",
		Pattern:  `(?i)(api[_\-]?key|secret[_\-]?key|access[_\-]?token|auth[_\-]?token)['"]?\s*[:=]\s*['"]?([A-Za-z_\-.]*[0-9][A-Za-z0-9_\-.]{5,}|[A-Za-z0-9_\-.]{5,}[0-9])`,
		Category: string(diagnostics.CredentialAccess),
		Severity: critical,
		Message:  "Secret assigned in plain text: {match}",
	},
	{
		ID:       "credential-browser-store",
		Pattern:  `(Login Data|Local State|logins\.json|key4\.db|cookies\.sqlite)`,
		Category: string(diagnostics.CredentialAccess),
		Severity: high,
		Message:  "Access to a browser credential store: {match}",
	},
	{
		ID:       "credential-keychain",
		Pattern:  `\bsecurity\s+(find-generic-password|find-internet-password|dump-keychain)`,
		Category: string(diagnostics.CredentialAccess),
		Severity: high,
		Message:  "Keychain credential dump: {match}",
	},

	// data_exfiltration
	{
		ID:       "exfil-env-post",
		Pattern:  `(fetch|axios\.post|requests\.post|http\.post)\s*\([^\n]*(process\.env|os\.environ)`,
		Category: string(diagnostics.DataExfiltration),
		Severity: critical,
		Message:  "Environment sent over the network: {match}",
	},
	{
		ID:       "exfil-discord-webhook",
		Pattern:  `discord(app)?\.com/api/webhooks/\d+`,
		Category: string(diagnostics.DataExfiltration),
		Severity: high,
		Message:  "Discord webhook endpoint: {match}",
	},
	{
		ID:       "exfil-telegram-bot",
		Pattern:  `api\.telegram\.org/bot`,
		Category: string(diagnostics.DataExfiltration),
		Severity: high,
		Message:  "Telegram bot API endpoint: {match}",
	},
	{
		ID:       "exfil-dns-lookup",
		Pattern:  `\b(nslookup|dig|host)\s+[^\n]*\$\(`,
		Category: string(diagnostics.DataExfiltration),
		Severity: high,
		Message:  "Command output smuggled through a DNS lookup: {match}",
	},

	// crypto_mining
	{
		ID:       "mining-stratum",
		Pattern:  `stratum\+(tcp|ssl|tls)://`,
		Category: string(diagnostics.CryptoMining),
		Severity: critical,
		Message:  "Mining pool protocol URL: {match}",
	},
	{
		ID:       "mining-known-miner",
		Pattern:  `(?i)\b(xmrig|coinhive|cryptonight|minergate|nicehash|cpuminer)\b`,
		Category: string(diagnostics.CryptoMining),
		Severity: high,
		Message:  "Known crypto miner referenced: {match}",
	},
	{
		ID:       "mining-pool-host",
		Pattern:  `(?i)\b(pool\.minexmr\.com|supportxmr\.com|nanopool\.org|2miners\.com|moneroocean\.stream)`,
		Category: string(diagnostics.CryptoMining),
		Severity: high,
		Message:  "Mining pool host: {match}",
	},

	// obfuscation
	{
		ID:       "obfuscation-decode-exec",
		Pattern:  `\b(eval|exec|Function)\s*\(\s*(atob|base64\.b64decode|base64_decode|Buffer\.from|codecs\.decode|bytes\.fromhex)`,
		Category: string(diagnostics.Obfuscation),
		Severity: critical,
		Message:  "Execution of decoded payload: {match}",
	},
	{
		ID:       "obfuscation-char-codes",
		Pattern:  `String\.fromCharCode\s*\(\s*\d+(\s*,\s*\d+){10,}`,
		Category: string(diagnostics.Obfuscation),
		Severity: high,
		Message:  "String assembled from character codes: {match}",
	},
	{
		ID:       "obfuscation-hex-escapes",
		Pattern:  `(\\x[0-9a-fA-F]{2}){20,}`,
		Category: string(diagnostics.Obfuscation),
		Severity: medium,
		Message:  "Long run of hex escapes: {match}",
	},
	{
		ID:       "obfuscation-base64-blob",
		Pattern:  `['"][A-Za-z0-9+/]{200,}={0,2}['"]`,
		Category: string(diagnostics.Obfuscation),
		Severity: medium,
		Message:  "Large embedded base64 blob: {match}",
	},

	// code_injection
	{
		ID:            "code-eval",
		Pattern:       `\beval\s*\(`,
		Category:      string(diagnostics.CodeInjection),
		Severity:      high,
		Message:       "Dynamic code evaluation: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "code-new-function",
		Pattern:       `\bnew\s+Function\s*\(`,
		Category:      string(diagnostics.CodeInjection),
		Severity:      high,
		Message:       "Function constructed from a string: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "code-vm-context",
		Pattern:       `\bvm\.runIn(New|This)?Context\s*\(`,
		Category:      string(diagnostics.CodeInjection),
		Severity:      high,
		Message:       "Code run in a VM context: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "code-dynamic-import",
		Pattern:       `__import__\s*\(\s*['"](os|subprocess|socket|ctypes)['"]`,
		Category:      string(diagnostics.CodeInjection),
		Severity:      high,
		Message:       "Dynamic import of a sensitive module: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "code-pickle-load",
		Pattern:       `\b(pickle|cPickle|marshal)\.loads?\s*\(`,
		Category:      string(diagnostics.CodeInjection),
		Severity:      medium,
		Message:       "Deserialisation of untrusted objects: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "code-string-timer",
		Pattern:       `\bset(Timeout|Interval)\s*\(\s*['"]`,
		Category:      string(diagnostics.CodeInjection),
		Severity:      medium,
		Message:       "Timer evaluating a string: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},

	// shell_execution
	{
		ID:            "shell-pipe-to-shell",
		Pattern:       `\b(curl|wget)\b[^|\n]*\|\s*(sudo\s+)?(ba|z|da)?sh\b`,
		Category:      string(diagnostics.ShellExecution),
		Severity:      critical,
		Message:       "Remote script piped into a shell: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "shell-python-shell-true",
		Pattern:       `\bsubprocess\.\w+\s*\([^\n]*shell\s*=\s*True`,
		Category:      string(diagnostics.ShellExecution),
		Severity:      high,
		Message:       "Subprocess invoked through the shell: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "shell-child-process",
		Pattern:       `\bchild_process\b|\b(execSync|spawnSync|execFileSync)\s*\(`,
		Category:      string(diagnostics.ShellExecution),
		Severity:      high,
		Message:       "Node child process execution: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "shell-os-system",
		Pattern:       `\bos\.(system|popen|exec[lv]p?e?)\s*\(`,
		Category:      string(diagnostics.ShellExecution),
		Severity:      high,
		Message:       "Operating system command execution: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "shell-runtime-exec",
		Pattern:       `Runtime\.getRuntime\(\)\.exec\s*\(|\bProcessBuilder\s*\(`,
		Category:      string(diagnostics.ShellExecution),
		Severity:      high,
		Message:       "JVM process execution: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "shell-php-exec",
		Pattern:       `\b(shell_exec|passthru|proc_open|system)\s*\(\s*\$`,
		Category:      string(diagnostics.ShellExecution),
		Severity:      high,
		Message:       "PHP command execution: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "shell-go-exec",
		Pattern:       `\bexec\.Command(Context)?\s*\(`,
		Category:      string(diagnostics.ShellExecution),
		Severity:      medium,
		Message:       "External command execution: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "shell-subprocess",
		Pattern:       `\bsubprocess\.(Popen|call|run|check_output|check_call)\s*\(`,
		Category:      string(diagnostics.ShellExecution),
		Severity:      medium,
		Message:       "Subprocess execution: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},

	// destructive_fs
	{
		ID:            "destructive-rm-root",
		Pattern:       `\brm\s+-(rf|fr|Rf|rF)\s+(/|~|\$HOME|/\*)(\s|$|['"])`,
		Category:      string(diagnostics.DestructiveFS),
		Severity:      critical,
		Message:       "Recursive deletion of a root or home directory: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "destructive-disk-wipe",
		Pattern:       `\bmkfs\.\w+\s+/dev/|\bdd\s+if=/dev/(zero|urandom|random)\s+of=/dev/`,
		Category:      string(diagnostics.DestructiveFS),
		Severity:      critical,
		Message:       "Disk overwrite: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "destructive-recursive-delete",
		Pattern:       `\b(shutil\.rmtree|fs\.rmSync|fs\.rmdirSync|os\.RemoveAll|rimraf(\.sync)?|FileUtils\.rm_rf)\s*\(`,
		Category:      string(diagnostics.DestructiveFS),
		Severity:      medium,
		Message:       "Recursive file deletion: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},

	// sensitive_path
	{
		ID:            "sensitive-ssh-keys",
		Pattern:       `\.ssh/(id_rsa|id_dsa|id_ecdsa|id_ed25519|authorized_keys|known_hosts)`,
		Category:      string(diagnostics.SensitivePath),
		Severity:      high,
		Message:       "SSH key material path: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "sensitive-system-files",
		Pattern:       `/etc/(passwd|shadow|sudoers|gshadow)\b`,
		Category:      string(diagnostics.SensitivePath),
		Severity:      high,
		Message:       "System account file path: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "sensitive-cloud-credentials",
		Pattern:       `\.aws/credentials|\.kube/config|\.docker/config\.json|\.config/gcloud|\.azure/`,
		Category:      string(diagnostics.SensitivePath),
		Severity:      high,
		Message:       "Cloud credential file path: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "sensitive-wallets",
		Pattern:       `(?i)(wallet\.dat|\.bitcoin/|\.ethereum/keystore|exodus\.wallet|Electrum/wallets)`,
		Category:      string(diagnostics.SensitivePath),
		Severity:      high,
		Message:       "Cryptocurrency wallet path: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},

	// network_suspicious
	{
		ID:            "network-paste-service",
		Pattern:       `(?i)(pastebin\.com|hastebin\.com|transfer\.sh|webhook\.site|requestbin|ngrok\.io|ngrok-free\.app)`,
		Category:      string(diagnostics.NetworkSuspicious),
		Severity:      high,
		Message:       "Paste or tunnelling service: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "network-raw-ip-url",
		Pattern:       `https?://(\d{1,3}\.){3}\d{1,3}`,
		Category:      string(diagnostics.NetworkSuspicious),
		Severity:      medium,
		Message:       "URL pointing at a raw IP address: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "network-download",
		Pattern:       `\b(curl|wget)\s+(-{1,2}[A-Za-z\-]+\s+)*['"]?https?://`,
		Category:      string(diagnostics.NetworkSuspicious),
		Severity:      medium,
		Message:       "Download from a remote URL: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "network-raw-socket",
		Pattern:       `\bsocket\.socket\s*\(|\bnew\s+net\.Socket\s*\(|\bnet\.connect\s*\(`,
		Category:      string(diagnostics.NetworkSuspicious),
		Severity:      medium,
		Message:       "Raw socket connection: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},

	// network_server
	{
		ID:            "network-server-listen",
		Pattern:       `\.listen\s*\(\s*\d+|\bhttp\.ListenAndServe\s*\(|\bnet\.Listen\s*\(|\bcreateServer\s*\(`,
		Category:      string(diagnostics.NetworkServer),
		Severity:      low,
		Message:       "Opens a listening server: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "network-bind-all",
		Pattern:       `['"]0\.0\.0\.0['"]|0\.0\.0\.0:\d+|\bINADDR_ANY\b`,
		Category:      string(diagnostics.NetworkServer),
		Severity:      low,
		Message:       "Binds on all interfaces: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},

	// env_access
	{
		ID:            "env-dump",
		Pattern:       `JSON\.stringify\s*\(\s*process\.env\s*\)|\bdict\s*\(\s*os\.environ\s*\)|\bos\.environ\.copy\s*\(\)|\bos\.Environ\s*\(\)`,
		Category:      string(diagnostics.EnvAccess),
		Severity:      medium,
		Message:       "Whole environment captured: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
	{
		ID:            "env-read",
		Pattern:       `\bprocess\.env\b|\bos\.(environ|getenv)\b|\bos\.(Getenv|LookupEnv)\s*\(|\bENV\[`,
		Category:      string(diagnostics.EnvAccess),
		Severity:      low,
		Message:       "Environment variable access: {match}",
		SkipIfComment: true,
		Contextual:    true,
	},
}
