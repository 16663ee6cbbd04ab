package infra

// DoneContext é o mínimo necessário para aceitar context.Context nos
// janitors sem importar context aqui. (Permite reuso em libs sem acoplar.)
type DoneContext interface {
	Done() <-chan struct{}
}
