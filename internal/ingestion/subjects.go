package ingestion

// SubjectNames maps subject codes to display names. Codes missing here are
// displayed as themselves.
var SubjectNames = map[string]string{
	"AAEC": "Agricultural and Applied Economics",
	"ACIS": "Accounting and Information Systems",
	"AOE":  "Aerospace and Ocean Engineering",
	"ARCH": "Architecture",
	"ART":  "Art and Art History",
	"BCHM": "Biochemistry",
	"BIOL": "Biological Sciences",
	"BMES": "Biomedical Engineering and Sciences",
	"BSE":  "Biological Systems Engineering",
	"CEE":  "Civil and Environmental Engineering",
	"CHE":  "Chemical Engineering",
	"CHEM": "Chemistry",
	"CHN":  "Chinese",
	"CMDA": "Computational Modeling and Data Analytics",
	"COMM": "Communication",
	"CRIM": "Criminology",
	"CS":   "Computer Science",
	"ECE":  "Electrical and Computer Engineering",
	"ECON": "Economics",
	"ENGE": "Engineering Education",
	"ENGL": "English",
	"ESM":  "Engineering Science and Mechanics",
	"FIN":  "Finance",
	"FR":   "French",
	"GEOG": "Geography",
	"GEOS": "Geosciences",
	"GER":  "German",
	"HD":   "Human Development",
	"HIST": "History",
	"HTM":  "Hospitality and Tourism Management",
	"ISE":  "Industrial and Systems Engineering",
	"JPN":  "Japanese",
	"MATH": "Mathematics",
	"ME":   "Mechanical Engineering",
	"MGT":  "Management",
	"MKTG": "Marketing",
	"MSE":  "Materials Science and Engineering",
	"MUS":  "Music",
	"NEUR": "Neuroscience",
	"PHIL": "Philosophy",
	"PHYS": "Physics",
	"PSCI": "Political Science",
	"PSYC": "Psychology",
	"RUS":  "Russian",
	"SOC":  "Sociology",
	"SPAN": "Spanish",
	"STAT": "Statistics",
}

// SubjectName returns the display name for code.
func SubjectName(code string) string {
	if name, ok := SubjectNames[code]; ok {
		return name
	}
	return code
}
