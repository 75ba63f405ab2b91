package manifest

import (
	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

//Ecosystem is a package registry
type Ecosystem string

const (
	NPM  Ecosystem = "npm"
	PyPI Ecosystem = "pypi"
)

//SuspiciousPackage is a package with a known compromise, sabotage or typosquatting incident
type SuspiciousPackage struct {
	Name      string               `json:"name" yaml:"name"`
	Ecosystem Ecosystem            `json:"ecosystem" yaml:"ecosystem"`
	Severity  diagnostics.Severity `json:"severity" yaml:"severity"`
	Rationale string               `json:"rationale" yaml:"rationale"`
}

//Table is a read-only lookup of suspicious packages per ecosystem
type Table struct {
	entries map[Ecosystem]map[string]SuspiciousPackage
}

//NewTable builds a lookup table. Later entries with the same ecosystem and name win.
func NewTable(packages ...SuspiciousPackage) *Table {
	t := &Table{entries: make(map[Ecosystem]map[string]SuspiciousPackage)}
	for _, p := range packages {
		if t.entries[p.Ecosystem] == nil {
			t.entries[p.Ecosystem] = make(map[string]SuspiciousPackage)
		}
		t.entries[p.Ecosystem][p.Name] = p
	}
	return t
}

//Lookup finds an exact name match in an ecosystem
func (t *Table) Lookup(eco Ecosystem, name string) (SuspiciousPackage, bool) {
	p, present := t.entries[eco][name]
	return p, present
}

//Len is the number of entries in the table
func (t *Table) Len() int {
	n := 0
	for _, m := range t.entries {
		n += len(m)
	}
	return n
}

//DefaultTable returns the built-in table of npm incidents and PyPI typosquats
func DefaultTable() *Table {
	return defaultTable
}

var defaultTable = NewTable(append(npmIncidents, pypiTyposquats...)...)

var npmIncidents = []SuspiciousPackage{
	{"event-stream", NPM, diagnostics.Critical, "2018: maintainer handover led to flatmap-stream injection targeting bitcoin wallets"},
	{"flatmap-stream", NPM, diagnostics.Critical, "2018: malicious payload stealing cryptocurrency wallet keys"},
	{"ua-parser-js", NPM, diagnostics.High, "2021: hijacked releases installed a crypto miner and password stealer"},
	{"coa", NPM, diagnostics.High, "2021: hijacked releases shipped credential-stealing malware"},
	{"rc", NPM, diagnostics.High, "2021: hijacked releases shipped credential-stealing malware"},
	{"colors", NPM, diagnostics.High, "2022: maintainer sabotage introduced an infinite loop"},
	{"faker", NPM, diagnostics.High, "2022: maintainer sabotage wiped the package"},
	{"node-ipc", NPM, diagnostics.Critical, "2022: protestware overwrote files on hosts in targeted regions"},
	{"peacenotwar", NPM, diagnostics.High, "2022: protestware dependency of node-ipc"},
	{"eslint-scope", NPM, diagnostics.High, "2018: compromised release stole npm tokens"},
	{"crossenv", NPM, diagnostics.Critical, "2017: typosquat of cross-env exfiltrating environment variables"},
	{"getcookies", NPM, diagnostics.Critical, "2018: backdoor allowing remote code execution"},
	{"electron-native-notify", NPM, diagnostics.Critical, "2019: dependency injected to steal cryptocurrency wallet seeds"},
	{"bootstrap-sass", NPM, diagnostics.Medium, "2019: a compromised release contained a cookie-triggered backdoor"},
	{"left-pad", NPM, diagnostics.Low, "2016: unpublished package broke builds across the ecosystem"},
}

var pypiTyposquats = []SuspiciousPackage{
	{"acqusition", PyPI, diagnostics.Critical, "typosquat of acquisition shipping a remote payload"},
	{"apidev-coop", PyPI, diagnostics.Critical, "typosquat of apidev-coop_cms shipping a remote payload"},
	{"bzip", PyPI, diagnostics.Critical, "typosquat of bz2file"},
	{"crypt", PyPI, diagnostics.Critical, "typosquat of crypto"},
	{"django-server", PyPI, diagnostics.Critical, "typosquat of django-server-guardian-api"},
	{"pwd", PyPI, diagnostics.Critical, "typosquat of pwdhash"},
	{"setup-tools", PyPI, diagnostics.Critical, "typosquat of setuptools"},
	{"telnet", PyPI, diagnostics.Critical, "typosquat of telnetsrvlib"},
	{"urlib3", PyPI, diagnostics.Critical, "typosquat of urllib3"},
	{"urllib", PyPI, diagnostics.Critical, "typosquat of urllib3"},
	{"colourama", PyPI, diagnostics.Critical, "typosquat of colorama hijacking clipboard cryptocurrency addresses"},
	{"jeilyfish", PyPI, diagnostics.Critical, "typosquat of jellyfish stealing SSH and GPG keys"},
	{"python3-dateutil", PyPI, diagnostics.Critical, "typosquat of python-dateutil stealing SSH and GPG keys"},
	{"ctx", PyPI, diagnostics.Critical, "2022: hijacked package exfiltrating environment variables"},
}
