package filter

import (
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// resultColumns are the Identity Record summary columns returned by a search.
var resultColumns = []string{
	"p.cpf", "p.nome", "p.data_nascimento", "p.nome_mae", "p.nome_pai",
}

// Query is a compiled, parameterized search: the page query and the matching
// count query sharing the same predicate tree.
type Query struct {
	SQL       string
	Args      []any
	CountSQL  string
	CountArgs []any
}

// Compile validates criteria and builds the paginated search query. Criteria
// combine with AND; page is 1-based and the result set is capped at pageSize
// rows with offset pagination.
func Compile(criteria []Criterion, page, pageSize int) (Query, error) {
	conds := sq.And{}
	for _, c := range criteria {
		ck, keep, err := check(c)
		if err != nil {
			return Query{}, err
		}
		if !keep {
			continue
		}
		conds = append(conds, predicate(ck))
	}

	if page < 1 {
		page = 1
	}
	offset := uint64(page-1) * uint64(pageSize)

	base := sq.Select(resultColumns...).From("pessoas p").PlaceholderFormat(sq.Dollar)
	count := sq.Select("count(*)").From("pessoas p").PlaceholderFormat(sq.Dollar)
	if len(conds) > 0 {
		base = base.Where(conds)
		count = count.Where(conds)
	}
	base = base.OrderBy("p.nome", "p.cpf").Limit(uint64(pageSize)).Offset(offset)

	sqlStr, args, err := base.ToSql()
	if err != nil {
		return Query{}, err
	}
	countStr, countArgs, err := count.ToSql()
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sqlStr, Args: args, CountSQL: countStr, CountArgs: countArgs}, nil
}

// predicate compiles one checked criterion to a squirrel Sqlizer. Satellite
// fields wrap their column predicate in EXISTS over the satellite table so
// multi-valued owners cannot multiply result rows.
func predicate(c checked) sq.Sqlizer {
	if c.def.satellite == "" {
		return columnPred(c.def.expr, c.op, c.args)
	}

	switch c.op {
	case OpEmpty:
		// "No satellite row with a non-empty value" — includes owners with
		// no satellite rows at all.
		return notExistsPred(c.def, columnPred(c.def.expr, OpNotEmpty, nil))
	case OpNotEmpty:
		return existsPred(c.def, columnPred(c.def.expr, OpNotEmpty, nil))
	default:
		return existsPred(c.def, columnPred(c.def.expr, c.op, c.args))
	}
}

func existsPred(def fieldDef, inner sq.Sqlizer) sq.Sqlizer {
	sub := sq.Select("1").
		From(def.satellite + " s").
		Where(sq.Expr("s." + def.ownerCol + " = p." + def.ownerCol)).
		Where(inner)
	return sq.Expr("EXISTS (?)", sub)
}

func notExistsPred(def fieldDef, inner sq.Sqlizer) sq.Sqlizer {
	sub := sq.Select("1").
		From(def.satellite + " s").
		Where(sq.Expr("s." + def.ownerCol + " = p." + def.ownerCol)).
		Where(inner)
	return sq.Expr("NOT EXISTS (?)", sub)
}

// columnPred compiles an operator over a single SQL expression.
func columnPred(expr string, op Op, args []any) sq.Sqlizer {
	switch op {
	case OpContains:
		return sq.ILike{expr: "%" + escapeLike(args[0].(string)) + "%"}
	case OpStartsWith:
		return sq.ILike{expr: escapeLike(args[0].(string)) + "%"}
	case OpEndsWith:
		return sq.ILike{expr: "%" + escapeLike(args[0].(string))}
	case OpEquals:
		return sq.Eq{expr: args[0]}
	case OpNotEquals:
		return sq.NotEq{expr: args[0]}
	case OpGreaterThan:
		return sq.Gt{expr: args[0]}
	case OpLessThan:
		return sq.Lt{expr: args[0]}
	case OpBetween:
		return sq.Expr(expr+" BETWEEN ? AND ?", args[0], args[1])
	case OpEmpty:
		return sq.Expr("(" + expr + " IS NULL OR btrim(" + expr + "::text) = '')")
	case OpNotEmpty:
		return sq.Expr("(" + expr + " IS NOT NULL AND btrim(" + expr + "::text) <> '')")
	default:
		// check() only admits the operators above.
		return sq.Expr("false")
	}
}

// escapeLike escapes LIKE wildcards in a user operand.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
