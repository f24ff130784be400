package espalier_test

import (
	"fmt"
	"log"

	"github.com/espalierhq/espalier"
	"github.com/espalierhq/espalier/pkg/domain"
	"github.com/espalierhq/espalier/pkg/template"
)

// ExampleOpen demonstrates driving a menu built from plain node functions.
func ExampleOpen() {
	tree := map[string]any{
		"start": func(domain.Actor) (domain.Output, error) {
			return domain.Output{
				Text: "Do you want to proceed?",
				Options: []domain.Option{
					{Keys: []string{"yes"}, Desc: "Move forward", Goto: domain.To("done")},
					{Keys: []string{"no"}, Desc: "Stay here", Goto: domain.To("start")},
				},
			}, nil
		},
		"done": func(domain.Actor) (domain.Output, error) {
			return domain.Output{Text: "Great! You moved forward."}, nil
		},
	}

	eng, err := espalier.Open(domain.ActorKey("demo"), tree)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(eng.Node())

	// a terminal node closes the session
	if err := eng.ParseInput("yes"); err != nil {
		log.Fatal(err)
	}
	fmt.Println(eng.Closed())

	// Output:
	// start
	// true
}

// ExampleOpen_template drives the same kind of flow from the text template
// format.
func ExampleOpen_template() {
	menu, err := template.Parse(`
## NODE start

Do you want to proceed?

## OPTIONS

    yes: Move forward -> done
    no: Stay here -> start

## NODE done

Great! You moved forward.
`, nil)
	if err != nil {
		log.Fatal(err)
	}

	eng, err := espalier.Open(domain.ActorKey("demo"), menu)
	if err != nil {
		log.Fatal(err)
	}

	if err := eng.ParseInput("no"); err != nil {
		log.Fatal(err)
	}
	fmt.Println(eng.Node(), eng.Closed())

	if err := eng.ParseInput("yes"); err != nil {
		log.Fatal(err)
	}
	fmt.Println(eng.Closed())

	// Output:
	// start false
	// true
}
