// Package util has small helpers shared by the loaders.
package util

import "fmt"

// StringMaps recursively converts map[interface{}]interface{} to
// map[string]interface{}.  Keys that aren't strings are formatted
// with %v.  Containers are copied.
//
// Had to go to this trouble because the YAML deserializer likes to
// make map[interface{}] instead of map[string].
func StringMaps(x interface{}) interface{} {
	switch vv := x.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			s, is := k.(string)
			if !is {
				s = fmt.Sprintf("%v", k)
			}
			m[s] = StringMaps(v)
		}
		return m
	case map[string]interface{}:
		m := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			m[k] = StringMaps(v)
		}
		return m
	case []interface{}:
		acc := make([]interface{}, len(vv))
		for i, v := range vv {
			acc[i] = StringMaps(v)
		}
		return acc
	}
	return x
}
