package value

import (
	"math"
	"strings"
)

// typeOrder positions a value in the jq total order:
// null < false < true < number < string < array < object.
func typeOrder(v Value) int {
	switch t := v.(type) {
	case nil:
		return 0
	case bool:
		if !t {
			return 1
		}
		return 2
	case float64:
		return 3
	case string:
		return 4
	case []Value:
		return 5
	case *Object:
		return 6
	default:
		return 7
	}
}

// Compare orders two values by the jq total order, returning -1, 0, or 1.
// NaN sorts below every other number. Objects compare by sorted key list
// first, then by the values under those keys.
func Compare(a, b Value) int {
	ta, tb := typeOrder(a), typeOrder(b)
	if ta != tb {
		return cmpInt(ta, tb)
	}

	switch av := a.(type) {
	case nil:
		return 0
	case bool:
		return 0 // same type order bucket implies same bool
	case float64:
		bv := b.(float64)
		switch {
		case math.IsNaN(av) && math.IsNaN(bv):
			return 0
		case math.IsNaN(av):
			return -1
		case math.IsNaN(bv):
			return 1
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		return strings.Compare(av, b.(string))
	case []Value:
		bv := b.([]Value)
		for i := 0; i < len(av) && i < len(bv); i++ {
			if c := Compare(av[i], bv[i]); c != 0 {
				return c
			}
		}
		return cmpInt(len(av), len(bv))
	case *Object:
		bv := b.(*Object)
		aks, bks := av.SortedKeys(), bv.SortedKeys()
		for i := 0; i < len(aks) && i < len(bks); i++ {
			if c := strings.Compare(aks[i], bks[i]); c != 0 {
				return c
			}
		}
		if c := cmpInt(len(aks), len(bks)); c != 0 {
			return c
		}
		for _, k := range aks {
			x, _ := av.Get(k)
			y, _ := bv.Get(k)
			if c := Compare(x, y); c != 0 {
				return c
			}
		}
		return 0
	default:
		return 0
	}
}

// Equal reports type-strict structural equality. NaN is not equal to
// anything, including itself.
func Equal(a, b Value) bool {
	if typeOrder(a) != typeOrder(b) {
		return false
	}
	if f, ok := a.(float64); ok {
		g := b.(float64)
		return f == g
	}
	return Compare(a, b) == 0
}

// Contains implements jq containment: strings by substring, arrays when
// every element of b is contained in some element of a, objects when
// every entry of b is contained in the matching entry of a.
func Contains(a, b Value) bool {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return strings.Contains(av, bv)
		}
	case []Value:
		if bv, ok := b.([]Value); ok {
			for _, be := range bv {
				found := false
				for _, ae := range av {
					if Contains(ae, be) {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		}
	case *Object:
		if bv, ok := b.(*Object); ok {
			for _, k := range bv.Keys() {
				be, _ := bv.Get(k)
				ae, ok := av.Get(k)
				if !ok || !Contains(ae, be) {
					return false
				}
			}
			return true
		}
	}
	return Equal(a, b)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
