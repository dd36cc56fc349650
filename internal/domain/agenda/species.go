package agenda

type Species string

const (
	SpeciesDog     Species = "dog"
	SpeciesCat     Species = "cat"
	SpeciesBird    Species = "bird"
	SpeciesRodent  Species = "rodent"
	SpeciesReptile Species = "reptile"
	SpeciesOther   Species = "other"
)

func SpeciesList() []Species {
	return []Species{SpeciesDog, SpeciesCat, SpeciesBird, SpeciesRodent, SpeciesReptile, SpeciesOther}
}

func (s Species) Label() string {
	switch s {
	case SpeciesDog:
		return "Cachorro"
	case SpeciesCat:
		return "Gato"
	case SpeciesBird:
		return "Ave"
	case SpeciesRodent:
		return "Roedor"
	case SpeciesReptile:
		return "Réptil"
	case SpeciesOther:
		return "Outro"
	}
	return "Outro"
}

// Weekday follows time.Weekday numbering: 0 is Sunday.
type Weekday int

const DaysPerWeek = 7

func (d Weekday) Valid() bool {
	return d >= 0 && d < DaysPerWeek
}

func (d Weekday) Label() string {
	switch d {
	case 0:
		return "Domingo"
	case 1:
		return "Segunda"
	case 2:
		return "Terça"
	case 3:
		return "Quarta"
	case 4:
		return "Quinta"
	case 5:
		return "Sexta"
	case 6:
		return "Sábado"
	}
	return ""
}
