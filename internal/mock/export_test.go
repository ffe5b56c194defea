package mock

var Tokenize = tokenize
