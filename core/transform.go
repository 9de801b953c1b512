package core

// Transformer mutates a Chunk in place before it reaches the console.
type Transformer interface {
	Transform(c *Chunk) error
}

// Chain applies transformers in order, stopping at the first error.
func Chain(c *Chunk, transformers ...Transformer) error {
	for _, tr := range transformers {
		if tr == nil {
			continue
		}
		if err := tr.Transform(c); err != nil {
			return err
		}
	}
	return nil
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(c *Chunk) error

// Transform implements Transformer.
func (f TransformerFunc) Transform(c *Chunk) error {
	return f(c)
}
