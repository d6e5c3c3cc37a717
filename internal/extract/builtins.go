package extract

import "strings"

// Builtins lists names a language provides without any user definition.
// References to them carry no indexing value and are dropped at extraction.
type Builtins struct {
	// Names are free functions such as print or len.
	Names map[string]bool
	// Qualifiers are standard modules or objects; any member call on them
	// is a builtin (fmt.Println, console.log, Math.max).
	Qualifiers map[string]bool
	// Methods are receiver methods of builtin types (list.append,
	// array.push) that would otherwise flood the pending queue.
	Methods map[string]bool
}

// genericBuiltins applies to every language.
var genericBuiltins = []string{"length", "print", "println"}

// Has reports whether a reference to name, optionally called through
// qualifier, is a builtin.
func (b Builtins) Has(name, qualifier string) bool {
	if qualifier == "" {
		return b.Names[name]
	}
	root := qualifierRoot(qualifier)
	if selfQualifiers[root] {
		// self.helper() is user code; self.items.append() is not.
		if root == strings.TrimSpace(qualifier) {
			return false
		}
		return b.Methods[name]
	}
	if b.Qualifiers[root] {
		return true
	}
	return b.Methods[name]
}

// selfQualifiers address the enclosing object; calls through them target
// user code.
var selfQualifiers = map[string]bool{"self": true, "this": true, "cls": true, "@": true}

// qualifierRoot returns the leading segment of a dotted or scoped
// qualifier: "os.path" -> "os", "std::io" -> "std".
func qualifierRoot(q string) string {
	q = strings.TrimSpace(q)
	if i := strings.IndexAny(q, ".:\\-("); i >= 0 {
		return q[:i]
	}
	return q
}

func setOf(groups ...[]string) map[string]bool {
	m := make(map[string]bool)
	for _, g := range groups {
		for _, s := range g {
			m[s] = true
		}
	}
	return m
}

func words(s string) []string { return strings.Fields(s) }

// BuiltinsFor returns the builtin sets for a language tag. Unknown
// languages get the generic set.
func BuiltinsFor(lang string) Builtins {
	if b, ok := builtinTable[lang]; ok {
		return b
	}
	return Builtins{Names: setOf(genericBuiltins)}
}

var jsBuiltins = Builtins{
	Names: setOf(genericBuiltins, words(`parseInt parseFloat isNaN isFinite setTimeout setInterval
		clearTimeout clearInterval setImmediate queueMicrotask require fetch alert String Number
		Boolean Array Object Symbol BigInt Promise Error TypeError RangeError Date RegExp Map Set
		WeakMap WeakSet structuredClone encodeURIComponent decodeURIComponent encodeURI decodeURI`)),
	Qualifiers: setOf(words(`console Math JSON Object Array Promise Number String Date Reflect
		Symbol process window document globalThis Intl`)),
	Methods: setOf(words(`push pop shift unshift slice splice map filter reduce forEach find
		findIndex some every includes indexOf join split concat keys values entries then catch
		finally toString trim replace toLowerCase toUpperCase startsWith endsWith hasOwnProperty
		apply call bind log error warn info debug has get set add delete clear length`)),
}

var builtinTable = map[string]Builtins{
	"go": {
		Names: setOf(genericBuiltins, words(`append cap clear close complex copy delete imag len
			make max min new panic print println real recover`)),
		Qualifiers: setOf(words(`fmt os io bufio bytes strings strconv errors sort slices maps
			sync atomic time context filepath path math rand json xml http url log slog regexp
			reflect unicode utf8 exec runtime testing filepath embed flag hex base64 sha256 md5`)),
		Methods: setOf(words(`Error String Lock Unlock RLock RUnlock Done Add Wait Close`)),
	},
	"python": {
		Names: setOf(genericBuiltins, words(`len range str int float list dict set tuple
			frozenset bool bytes bytearray isinstance issubclass open super enumerate zip map
			filter sorted reversed min max sum abs any all getattr setattr hasattr delattr type
			repr iter next id hash format input round vars dir object callable staticmethod
			classmethod property divmod pow chr ord bin hex oct exec eval globals locals`)),
		Qualifiers: setOf(words(`os sys re json math time datetime logging itertools functools
			collections subprocess pathlib typing random shutil asyncio copy pickle`)),
		Methods: setOf(words(`append extend insert pop remove keys values items get update join
			split strip lstrip rstrip format startswith endswith replace lower upper add discard
			copy clear count index sort encode decode setdefault`)),
	},
	"javascript": jsBuiltins,
	"typescript": jsBuiltins,
	"tsx":        jsBuiltins,
	"java": {
		Names: setOf(genericBuiltins),
		Qualifiers: setOf(words(`System Math String Integer Long Double Boolean Arrays
			Collections Objects List Map Set Optional Stream Thread`)),
		Methods: setOf(words(`println print printf equals hashCode toString add get put size
			isEmpty contains remove stream map filter collect forEach append length charAt
			substring trim valueOf`)),
	},
	"rust": {
		Names: setOf(genericBuiltins, words(`format vec panic assert assert_eq assert_ne
			eprintln eprint write writeln todo unimplemented unreachable Some Ok Err Box drop
			matches dbg`)),
		Qualifiers: setOf(words(`std core alloc String Vec Box Option Result HashMap HashSet
			Rc Arc`)),
		Methods: setOf(words(`unwrap expect clone to_string into iter iter_mut into_iter map
			collect push pop len is_empty as_str as_ref borrow borrow_mut unwrap_or insert get
			contains`)),
	},
	"c": {
		Names: setOf(genericBuiltins, words(`printf fprintf sprintf snprintf scanf malloc calloc
			realloc free memcpy memmove memset memcmp strlen strcmp strncmp strcpy strncpy strcat
			exit abort puts putchar getchar fopen fclose fread fwrite assert sizeof`)),
	},
	"cpp": {
		Names: setOf(genericBuiltins, words(`printf fprintf malloc free memcpy memset strlen
			strcmp exit assert sizeof move forward make_shared make_unique static_cast
			dynamic_cast`)),
		Qualifiers: setOf(words(`std`)),
		Methods: setOf(words(`push_back emplace_back size begin end empty clear insert erase
			find at c_str`)),
	},
	"csharp": {
		Names: setOf(genericBuiltins, words(`nameof typeof`)),
		Qualifiers: setOf(words(`Console Math String Convert Task List Enumerable Guid
			DateTime`)),
		Methods: setOf(words(`WriteLine Write ToString Add Count Equals GetHashCode Select Where
			ToList Any First FirstOrDefault`)),
	},
	"ruby": {
		Names: setOf(genericBuiltins, words(`puts p pp require require_relative raise
			attr_accessor attr_reader attr_writer include extend private protected public
			lambda proc loop format sprintf`)),
		Methods: setOf(words(`each map select reject new to_s to_i to_a inspect freeze each_with_index
			push pop first last size empty?`)),
	},
	"php": {
		Names: setOf(genericBuiltins, words(`echo isset unset empty count strlen var_dump
			print_r implode explode sprintf printf in_array array_map array_filter array_keys
			array_values array_merge json_encode json_decode is_array is_string die exit`)),
	},
	"kotlin": {
		Names: setOf(genericBuiltins, words(`listOf mutableListOf mapOf mutableMapOf setOf
			arrayOf require check error TODO repeat run let apply also with lazy`)),
		Methods: setOf(words(`map filter forEach toString let apply also add get size`)),
	},
	"scala": {
		Names: setOf(genericBuiltins, words(`require assert List Map Set Seq Some None Option`)),
		Methods: setOf(words(`map filter foreach flatMap toString mkString size`)),
	},
	"swift": {
		Names: setOf(genericBuiltins, words(`debugPrint fatalError precondition assert min max
			abs stride zip`)),
		Methods: setOf(words(`append map filter forEach reduce count`)),
	},
	"bash": {
		Names: setOf(genericBuiltins, words(`echo printf cd ls cat grep sed awk export source
			test read exit set unset local return shift eval exec trap mkdir rm cp mv chmod
			true false`)),
	},
	"lua": {
		Names: setOf(genericBuiltins, words(`pairs ipairs require tostring tonumber type error
			assert pcall xpcall setmetatable getmetatable select rawget rawset next unpack`)),
		Qualifiers: setOf(words(`string table math os io coroutine`)),
	},
}
