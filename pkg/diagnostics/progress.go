package diagnostics

type Progress struct {
	Source      string //repository URL or bundle label
	Position    int64  //how many files processed so far
	Total       int64  //total number of files
	CurrentFile string
}
