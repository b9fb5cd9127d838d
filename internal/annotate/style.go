package annotate

// Stylesheet styles both presentation modes. Books get it as a
// separate CSS item linked from each rewritten chapter; standalone
// HTML output embeds it in a style element.
const Stylesheet = `ruby.gloss-word {
    ruby-position: under;
    -webkit-ruby-position: after;
}

ruby.gloss-word rt.gloss-ruby {
    font-size: 0.6em;
    color: #7f8c8d;
    font-family: sans-serif;
}

span.gloss-word span.gloss-inline {
    font-size: 0.75em;
    color: #7f8c8d;
    background: #f0f3f4;
    padding: 0 4px;
    margin: 0 2px;
    border-radius: 4px;
    font-family: sans-serif;
}
`
