package sunat

import "strings"

// pesos del dígito verificador del RUC (módulo 11)
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// NormalizeRUC deja solo dígitos y trunca a 11 caracteres.
func NormalizeRUC(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			if b.Len() == 11 {
				break
			}
		}
	}
	return b.String()
}

// IsValidRUC valida longitud y dígito verificador (módulo 11) de un RUC.
func IsValidRUC(ruc string) bool {
	if len(ruc) != 11 {
		return false
	}
	sum := 0
	for i, w := range rucWeights {
		d := ruc[i]
		if d < '0' || d > '9' {
			return false
		}
		sum += int(d-'0') * w
	}
	check := 11 - sum%11
	if check >= 10 {
		check -= 10
	}
	last := ruc[10]
	if last < '0' || last > '9' {
		return false
	}
	return int(last-'0') == check
}
